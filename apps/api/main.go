package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	echoapi "github.com/interamericana/registro/apps/api/echo"
	"github.com/interamericana/registro/core"
	"github.com/interamericana/registro/core/annotation"
	"github.com/interamericana/registro/core/emergency"
	"github.com/interamericana/registro/core/school"
	"github.com/interamericana/registro/core/user"
	"github.com/interamericana/registro/services/broadcast"
	emailsvc "github.com/interamericana/registro/services/email"
	logsvc "github.com/interamericana/registro/services/logger"
	"github.com/interamericana/registro/storage/database"
	sqliterepos "github.com/interamericana/registro/storage/database/sqlite"
)

const shutdownTimeout = 20 * time.Second

func main() {
	// =========================================================================
	// Set up Dependencies

	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	var logger core.Logger
	if core.Conf.RollbarToken != "" {
		rollbarLogger := logsvc.NewRollbarLogger(std, core.Conf)
		rollbarLogger.Enable(!core.Conf.Debug)
		logger = rollbarLogger
	} else {
		logger = logsvc.NewStdLogger(std)
	}

	// set up DB
	db, err := database.Open(core.Conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()
	if err = database.Migrate(db); err != nil {
		logger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}

	hub := broadcast.NewHub(logger)
	go hub.Run()
	defer hub.Stop()

	schoolRepo := sqliterepos.NewSchoolRepository(db)
	userSvc := user.NewService(sqliterepos.NewUserRepository(db), mailSvc)
	schoolSvc := school.NewService(schoolRepo)
	annotationSvc := annotation.NewService(sqliterepos.NewAnnotationRepository(db), hub)
	emergencySvc := emergency.NewService(sqliterepos.NewEmergencyRepository(db), schoolRepo, hub)

	// =========================================================================
	// Start API Service

	logger.Info(fmt.Sprintf("%s initializing : version %q : env %s", core.Conf.AppName, core.Conf.Build, core.Conf.Env))
	defer logger.Info("Application stopped")

	server := echoapi.NewServer(&echoapi.Options{
		Address:       core.Conf.Address(),
		Logger:        logger,
		UserSvc:       userSvc,
		SchoolSvc:     schoolSvc,
		AnnotationSvc: annotationSvc,
		EmergencySvc:  emergencySvc,
		Hub:           hub,
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
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
