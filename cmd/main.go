package main

import (
	"log"

	infra "github.com/clicksand/clicksand/internal/infrastructure"
	"github.com/clicksand/clicksand/internal/infrastructure/driver"
	"github.com/clicksand/clicksand/internal/infrastructure/logging"
	"github.com/clicksand/clicksand/internal/infrastructure/uuid"
	ihttp "github.com/clicksand/clicksand/internal/interfaces/http"
	"github.com/clicksand/clicksand/internal/tracking"
	"go.uber.org/zap"
)

func main() {
	log.SetFlags(log.Lshortfile | log.Ldate | log.Ltime)
	option, err := infra.InitConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewLogger(&logging.Config{
		FilePath: option.Logging.FilePath,
		Level:    option.Logging.Level,
		AppID:    option.AppID,
		Env:      option.Env,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %s\n", err)
	}
	logger = logger.With(
		zap.String("service.id", option.AppID),
	)
	defer logger.Sync()

	dbConn, err := driver.GetDBConnection(&driver.DBConfig{
		User:     option.Database.User,
		Password: option.Database.Password,
		MaxConn:  option.Database.MaxConn,
		Protocol: option.Database.Protocol,
		Driver:   option.Database.Driver,
		Host:     option.Database.Host,
		Port:     option.Database.Port,
		Query:    option.Database.Query,
		Schema:   option.Database.Schema,
	})
	if err != nil {
		log.Fatalf("Failed to create DB connection: %s\n", err)
	}
	logger.Debug("Create db connection instance", zap.String("db.driver", option.Database.Driver),
		zap.String("db.schema", option.Database.Schema),
		zap.String("db.host", option.Database.Host),
		zap.Any("config", option.Database),
	)

	rdb := driver.NewRedisClient(option.KVStore.Host, option.KVStore.Port, option.KVStore.Password)

	UUIDGenerator := uuid.NewNanoIDGenerator(option.Security.IDLength)
	SnapshotRepo := tracking.NewSnapshotCache(rdb,
		tracking.NewSnapshotSQL(dbConn),
		option.KVStore.SnapshotTTL,
	)
	Broker := tracking.NewBroker()
	TrackingUseCase := tracking.NewUseCase(SnapshotRepo, Broker, UUIDGenerator, logger, tracking.UseCaseConfig{
		SessionTimeout: option.Tracking.SessionTimeout,
		SaveDebounce:   option.Tracking.SaveDebounce,
		MaxTickDelta:   option.Tracking.MaxTickDelta,
	})
	defer TrackingUseCase.Close()

	ihttp.Serve(dbConn, rdb, option, TrackingUseCase, Broker, logger)
}
