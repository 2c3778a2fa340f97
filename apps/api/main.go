package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/shulehub/shule/apps/api/echo"
	"github.com/shulehub/shule/core"
	"github.com/shulehub/shule/core/push"
	"github.com/shulehub/shule/core/resource"
	"github.com/shulehub/shule/core/user"
	emailsvc "github.com/shulehub/shule/services/email"
	logsvc "github.com/shulehub/shule/services/logger"
	webpushsvc "github.com/shulehub/shule/services/webpush"
	"github.com/shulehub/shule/storage/document/mongodb"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	// set up the document store
	ctx := context.Background()
	store, err := mongodb.Open(ctx, conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up document store: %v", err), err)
	}
	defer func() {
		if err = store.Close(ctx); err != nil {
			logger.Error(fmt.Sprintf("closing document store: %v", err), err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	dispatcher := push.NewDispatcher(
		push.NewRegistry(),
		webpushsvc.NewTransport(conf),
		conf.Push.VAPIDPublicKey,
		logger,
	)
	auditor := resource.NewAuditor(store, logger)
	engine := resource.NewService(store, resource.NewHooks(auditor, dispatcher), logger)
	usrSvc := user.NewService(engine, mailSvc, conf)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Engine:     engine,
		Auditor:    auditor,
		UserSvc:    usrSvc,
		Dispatcher: dispatcher,
		Validate:   validate,
		Translator: translator,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		sctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(sctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
