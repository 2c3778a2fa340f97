package user

import (
	"testing"
	"time"

	"github.com/shulehub/shule/core"
)

func newTokenService() *Service {
	conf := &core.Config{
		SecretKey:                     []byte("secret"),
		EmailConfirmationTimeoutDelta: 3 * 24 * time.Hour,
	}
	return &Service{conf: conf}
}

func TestMakeVerifyToken(t *testing.T) {
	svc := newTokenService()

	usr := User{ID: "u1", Name: "T", Email: "t@test.test"}
	_ = usr.SetPassword("pwd")

	validToken, err := svc.MakeToken(usr)
	if err != nil {
		t.Fatalf("MakeToken(): %v", err)
	}

	// generate an expired token
	dayLate := svc.conf.EmailConfirmationTimeoutDelta + (24 * time.Hour)
	NowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, err := svc.MakeToken(usr)
	if err != nil {
		t.Fatalf("MakeToken(): %v", err)
	}
	NowFunc = time.Now // reset

	// a token self-invalidates once the email is confirmed
	confirmedUsr := usr
	confirmedUsr.EmailConfirmed = true

	tests := []struct {
		name    string
		usr     User
		token   string
		wantErr error
	}{
		{name: "no token", usr: usr, wantErr: errInvalidToken},
		{name: "invalid parts len", usr: usr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", usr: usr, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", usr: usr, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", usr: usr, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "expired token", usr: usr, token: expiredToken, wantErr: errTokenExpired},
		{name: "already confirmed", usr: confirmedUsr, token: validToken, wantErr: errInvalidToken},
		{name: "valid token", usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.verifyToken(tt.usr, tt.token); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	usr := User{ID: "0f1e2d3c"}
	uid := EncodeUID(usr)
	id, err := decodeUID(uid)
	if err != nil {
		t.Fatalf("decodeUID(): %v", err)
	}
	if id != usr.ID {
		t.Errorf("decodeUID() = %q, want %q", id, usr.ID)
	}

	if _, err = decodeUID("!!! not base64 !!!"); err == nil {
		t.Error("decodeUID() accepted garbage")
	}
}
