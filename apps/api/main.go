package main

import (
	"context"
	"database/sql"
	"expvar"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/tmonsalve/aula/apps/api/echo"
	"github.com/tmonsalve/aula/core"
	"github.com/tmonsalve/aula/core/academic"
	"github.com/tmonsalve/aula/core/billing"
	"github.com/tmonsalve/aula/core/contract"
	"github.com/tmonsalve/aula/core/notify"
	"github.com/tmonsalve/aula/core/settings"
	"github.com/tmonsalve/aula/core/student"
	"github.com/tmonsalve/aula/core/user"
	broadcastsvc "github.com/tmonsalve/aula/services/broadcast"
	emailsvc "github.com/tmonsalve/aula/services/email"
	logsvc "github.com/tmonsalve/aula/services/logger"
	"github.com/tmonsalve/aula/storage/database"
	sqlxrepos "github.com/tmonsalve/aula/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()
	dbx := sqlx.NewDb(db, "postgres")

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	var broadcaster core.Broadcaster
	if redisBroadcaster, err := broadcastsvc.NewRedisBroadcaster(conf); err == nil {
		defer func() { _ = redisBroadcaster.Close() }()
		broadcaster = redisBroadcaster
	} else if conf.Debug {
		// topic delivery is best-effort in DEV mode
		logger.Warn(fmt.Sprintf("redis unavailable, topic broadcasts disabled: %v", err))
		broadcaster = broadcastsvc.NewDummyBroadcaster()
	} else {
		logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
	}

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(dbx), mailSvc, conf)
	stdSvc := student.NewService(sqlxrepos.NewStudentRepository(dbx))
	settingsSvc := settings.NewService(sqlxrepos.NewSettingRepository(dbx))

	renderer := notify.NewRenderer(settingsSvc)
	dispatcher := notify.NewDispatcher(
		broadcaster,
		sqlxrepos.NewNotificationRepository(dbx),
		mailSvc,
		renderer,
		cashierDirectory{svc: usrSvc},
		logger,
		conf,
	)

	acdSvc := academic.NewService(sqlxrepos.NewAcademicRepository(dbx), usrSvc, dispatcher)
	bilSvc := billing.NewService(sqlxrepos.NewBillingRepository(dbx), stdSvc, acdSvc, dispatcher)
	ctrSvc := contract.NewService(sqlxrepos.NewContractRepository(dbx), stdSvc, acdSvc, dispatcher)
	notifSvc := notify.NewNotificationService(sqlxrepos.NewNotificationRepository(dbx))

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	user.LoadCommonPasswords(conf, logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err = http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:        conf,
			Logger:      logger,
			Validate:    validate,
			Translator:  translator,
			UserSvc:     usrSvc,
			StudentSvc:  stdSvc,
			AcademicSvc: acdSvc,
			BillingSvc:  bilSvc,
			ContractSvc: ctrSvc,
			SettingsSvc: settingsSvc,
			NotifSvc:    notifSvc,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// cashierDirectory resolves cashier recipients for voucher notifications.
type cashierDirectory struct {
	svc *user.Service
}

func (d cashierDirectory) Cashiers(ctx context.Context) ([]notify.Recipient, error) {
	usrs, err := d.svc.QueryCashiers(ctx)
	if err != nil {
		return nil, err
	}
	recipients := make([]notify.Recipient, len(usrs))
	for i, usr := range usrs {
		recipients[i] = notify.Recipient{UserID: usr.ID, Name: usr.Name, Email: usr.Email}
	}
	return recipients, nil
}

func setUpDB(conf *core.Config) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
