package main

import (
	"fmt"

	"aggregat4/linkmarks/internal/domain"
	"aggregat4/linkmarks/internal/exporter"
	"aggregat4/linkmarks/internal/importer"
	"aggregat4/linkmarks/internal/logging"
	"aggregat4/linkmarks/internal/metadata"
	"aggregat4/linkmarks/internal/repository"
	"aggregat4/linkmarks/internal/server"

	"github.com/aggregat4/go-baselib/env"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/mattn/go-sqlite3"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		fmt.Printf("no .env file loaded: %s\n", err)
	}
	config := domain.Configuration{
		DbFilename:             env.RequireStringFromEnv("LINKMARKS_DB_FILENAME"),
		FetchTimeoutSeconds:    env.GetIntFromEnv("LINKMARKS_FETCH_TIMEOUT_SECONDS", 15),
		MaxRedirects:           env.GetIntFromEnv("LINKMARKS_MAX_REDIRECTS", 5),
		MaxBodyBytes:           env.GetIntFromEnv("LINKMARKS_MAX_BODY_BYTES", 2*1024*1024),
		UserAgent:              env.GetStringFromEnv("LINKMARKS_USER_AGENT", ""),
		BatchDelayMillis:       env.GetIntFromEnv("LINKMARKS_BATCH_DELAY_MILLIS", 100),
		InsecureSkipVerify:     env.GetStringFromEnv("LINKMARKS_INSECURE_SKIP_VERIFY", "false") == "true",
		CaptureReadableContent: env.GetStringFromEnv("LINKMARKS_CAPTURE_READABLE_CONTENT", "true") == "true",
		MaxCategoryDepth:       env.GetIntFromEnv("LINKMARKS_MAX_CATEGORY_DEPTH", 10),
		ExportChunkSize:        env.GetIntFromEnv("LINKMARKS_EXPORT_CHUNK_SIZE", 500),
		BookmarksPageSize:      env.GetIntFromEnv("LINKMARKS_PAGE_SIZE", 50),
		BaseURL:                env.RequireStringFromEnv("LINKMARKS_BASE_URL"),
		ServerPort:             env.GetIntFromEnv("LINKMARKS_SERVER_PORT", 1323),
		ServerReadTimeoutSecs:  env.GetIntFromEnv("LINKMARKS_SERVER_READ_TIMEOUT_SECONDS", 5),
		ServerWriteTimeoutSecs: env.GetIntFromEnv("LINKMARKS_SERVER_WRITE_TIMEOUT_SECONDS", 30),
		LogLevel:               env.GetStringFromEnv("LINKMARKS_LOG_LEVEL", "info"),
		PrettyLog:              env.GetStringFromEnv("LINKMARKS_PRETTY_LOG", "false") == "true",
	}
	logger, err := logging.New(config.LogLevel, config.PrettyLog)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	var store repository.Store
	err = store.InitAndVerifyDb(config.DbFilename)
	if err != nil {
		panic(err)
	}
	defer store.Close()

	server.RunServer(server.Controller{
		Store:    &store,
		Config:   config,
		Fetcher:  metadata.NewFetchClient(&store, config, logger),
		Importer: importer.New(&store, config.MaxCategoryDepth, logger),
		Exporter: exporter.New(&store, config.ExportChunkSize, config.MaxCategoryDepth, logger),
		FeedId:   env.GetStringFromEnv("LINKMARKS_FEED_ID", uuid.New().String()),
		Logger:   logger,
	})
}
