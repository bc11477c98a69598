package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"faqbot/handler"
	"faqbot/internal/citation"
	"faqbot/internal/config"
	"faqbot/internal/conversation"
	"faqbot/internal/dataset"
	"faqbot/internal/ident"
	"faqbot/internal/integrations/paramstore"
	"faqbot/internal/notify"
	"faqbot/internal/repository"
	"faqbot/internal/search"
	"faqbot/internal/usecase"
)

func main() {
	ctx := context.Background()

	// Local development only; the file is absent in deployed environments.
	_ = godotenv.Load()

	log, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()

	// ---- Configuration (read only here) ----
	archiveTable := mustEnv(log, "ARCHIVE_TABLE")
	paramPrefix := mustEnv(log, "PARAM_PREFIX")
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal("load configuration", zap.Error(err))
	}

	// ---- AWS SDK config ----
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatal("load AWS config", zap.Error(err))
	}

	// ---- Clients ----
	params, err := paramstore.New(awsssm.NewFromConfig(awsCfg), paramPrefix)
	if err != nil {
		log.Fatal("create SSM client", zap.Error(err))
	}
	archive, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), archiveTable)
	if err != nil {
		log.Fatal("create archive client", zap.Error(err))
	}

	// ---- Notifications ----
	webhookURL, err := params.SlackWebhookURL(ctx)
	if err != nil {
		log.Fatal("read slack webhook url", zap.Error(err))
	}
	dispatcher := notify.NewDispatcher(cfg.Notify.QueueSize, log, notify.NewSlackSink(webhookURL))
	defer dispatcher.Close()

	// ---- Dataset ----
	store, err := dataset.NewStore(cfg.Dataset.Path, log)
	if err != nil {
		log.Fatal("load dataset", zap.Error(err))
	}
	if cfg.Dataset.Watch {
		watcher, err := dataset.NewWatcher(store, log, func(err error) {
			if err != nil {
				dispatcher.Notify(notify.DatasetEvent{Path: cfg.Dataset.Path, Err: err})
			}
		})
		if err != nil {
			log.Warn("dataset watcher unavailable", zap.Error(err))
		} else {
			go watcher.Run(ctx)
			defer watcher.Close()
		}
	}

	// ---- Conversation flow ----
	sessions := conversation.NewStore(cfg.Session.IdleWindow, log)
	go sessions.RunSweeper(ctx, cfg.Session.SweepInterval)

	searchSvc, err := usecase.NewSearchService(
		store,
		search.NewEngine(cfg.Search.TopK),
		citation.NewComposer(cfg.Citation.ExcerptRunes),
		dispatcher,
		cfg.Search.Threshold,
		cfg.Citation.MaxItems,
	)
	if err != nil {
		log.Fatal("create search service", zap.Error(err))
	}

	machine, err := conversation.NewMachine(conversation.NewCatalog(store), searchSvc, ident.NewSource())
	if err != nil {
		log.Fatal("create conversation machine", zap.Error(err))
	}
	convSvc, err := usecase.NewConversationService(sessions, machine, archive, dispatcher)
	if err != nil {
		log.Fatal("create conversation service", zap.Error(err))
	}
	feedbackSvc, err := usecase.NewFeedbackService(archive, dispatcher)
	if err != nil {
		log.Fatal("create feedback service", zap.Error(err))
	}
	adminSvc, err := usecase.NewDataSourceService(store, dispatcher)
	if err != nil {
		log.Fatal("create data source service", zap.Error(err))
	}

	// ---- Handler ----
	h, err := handler.NewHandler(convSvc, searchSvc, feedbackSvc, adminSvc, log)
	if err != nil {
		log.Fatal("create handler", zap.Error(err))
	}

	lambda.Start(h.Handle)
}

func mustEnv(log *zap.Logger, key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatal("required environment variable is not set", zap.String("key", key))
	}
	return v
}
