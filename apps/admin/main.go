package main

import (
	"context"
	"log"
	"os"

	"github.com/gjb2048/gradereviews/core"
	"github.com/gjb2048/gradereviews/core/privacy"
	logsvc "github.com/gjb2048/gradereviews/services/logger"
	"github.com/gjb2048/gradereviews/storage/database"
	sqlxrepos "github.com/gjb2048/gradereviews/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)
	logger.Enable(!conf.Debug)

	// set up DB
	db, err := database.Open(context.Background(), conf)
	if err != nil {
		logger.Fatal(err.Error(), err)
	}

	// start CLI
	cli := commandLine{
		provider: privacy.NewProvider(sqlxrepos.NewPrivacyRepository(db, conf), logger),
		out:      os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error(err.Error(), err)
		}
		os.Exit(1)
	}
}
