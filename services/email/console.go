package emailsvc

import (
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/shulehub/shule/core"
)

var (
	// SentMessages collects everything the console service "sent"; tests
	// assert against it.
	SentMessages = make([]core.EmailMessage, 0)
	mu           sync.Mutex
)

type consoleService struct {
	defaultFromEmail mail.Address
	subjPrefix       string
	disableOutput    bool
}

var _ core.EmailService = (*consoleService)(nil)

func NewConsoleService(conf *core.Config) core.EmailService {
	return &consoleService{
		defaultFromEmail: conf.DefaultFromEmail,
		subjPrefix:       "[" + conf.AppName + "] ",
		disableOutput:    conf.TestMode,
	}
}

func (svc consoleService) SendMessages(messages ...*core.EmailMessage) {
	for _, msg := range messages {
		go svc.sendMessage(msg)
	}
}

func (svc consoleService) sendMessage(msg *core.EmailMessage) {
	if !msg.HasRecipients() || !msg.HasContent() {
		return
	}
	svc.send(*msg)
	mu.Lock()
	SentMessages = append(SentMessages, *msg)
	mu.Unlock()
}

func (svc consoleService) send(msg core.EmailMessage) {
	if svc.disableOutput {
		return
	}
	tos := make([]string, len(msg.To))
	for i, to := range msg.To {
		tos[i] = to.String()
	}
	fmt.Printf(
		"From: %s\nTo: %s\nSubject: %s%s\n\n%s\n%s\n",
		svc.defaultFromEmail.String(),
		strings.Join(tos, ", "),
		svc.subjPrefix, msg.Subject,
		msg.Body,
		strings.Repeat("-", 70),
	)
}
