package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"elearning_video_service/internal/video/api/handlers"
	"elearning_video_service/internal/video/api/router"
	"elearning_video_service/internal/video/app"
	"elearning_video_service/internal/video/domain"
	"elearning_video_service/internal/video/repository"
	"elearning_video_service/pkg/config"
	"elearning_video_service/pkg/database"
	"elearning_video_service/pkg/logger"
	"elearning_video_service/pkg/storage"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.VideoService, config.EnvConfig.VideoServiceLogPath)

	cfg := config.LoadConfig[config.VideoService](config.EnvConfig.VideoService, config.EnvConfig.VideoServiceYAMLPath)

	// 1. PostgreSQL
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		cfg.PostgreSQL.Host, cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Database, cfg.PostgreSQL.Port)
	db, err := database.NewPGConnection(database.Connection{
		ConnectStr: dsn,

		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		logger.Log.Fatal(
			"Unable to connect to postgreSQL database after retries",
			zap.Error(err),
		)
	}

	videoRepo := repository.NewVideoRepo(db)
	if err := videoRepo.AutoMigrate(); err != nil {
		log.Fatalf("video table migration failed: %v", err)
	}
	lessonRepo := repository.NewLessonRepo(db)
	if err := lessonRepo.AutoMigrate(); err != nil {
		log.Fatalf("lesson table migration failed: %v", err)
	}

	// 2. storage layout
	layout, err := storage.NewLayout(cfg.Storage.Root)
	if err != nil {
		log.Fatalf("storage layout failed: %v", err)
	}
	if err := layout.EnsureBase(); err != nil {
		log.Fatalf("storage layout failed: %v", err)
	}

	// 3. RabbitMQ
	rabbitURL := fmt.Sprintf("amqp://%s:%s@%s:%s/", cfg.RabbitMQ.User, cfg.RabbitMQ.Password, cfg.RabbitMQ.IP, cfg.RabbitMQ.Port)
	conn, err := database.ConnectRabbitMQWithRetry(database.Connection{
		ConnectStr:    rabbitURL,
		RetryCount:    cfg.RabbitMQ.RetryCount,
		RetryInterval: time.Duration(cfg.RabbitMQ.RetryInterval),
	})
	if err != nil {
		log.Fatalf("RabbitMQ connect failed: %v", err)
	}
	defer conn.Close()

	rabbitChannel, err := database.GetRabbitMQChannelWithRetry(conn, cfg.RabbitMQ.RetryCount,
		time.Duration(cfg.RabbitMQ.RetryInterval))
	if err != nil {
		log.Fatalf("RabbitMQ channel failed: %v", err)
	}
	defer rabbitChannel.Close()

	if err := app.DeclareQueues(rabbitChannel); err != nil {
		log.Fatalf("queue declare failed: %v", err)
	}
	jobQueue := app.NewRabbitJobQueue(database.NewRabbitRepository(rabbitChannel))

	// 4. Redis single-flight locks
	redisClient, err := database.NewRedisClient(cfg.Redis.Addr, cfg.Redis.RedisDB)
	if err != nil {
		log.Fatalf("redis connect failed: %v", err)
	}
	defer redisClient.Close()
	locks := database.NewLockRepository(redisClient)

	// 5. optional rendition mirror
	publisher := app.NewNopRenditionPublisher()
	if cfg.Publish.Enabled {
		minioClient, err := database.NewMinIOConnection(database.MinIOConnection{
			Endpoint:   fmt.Sprintf("%s:%d", cfg.Publish.MinIO.Host, cfg.Publish.MinIO.Port),
			User:       cfg.Publish.MinIO.User,
			Password:   cfg.Publish.MinIO.Password,
			BucketName: cfg.Publish.MinIO.BucketName,
			UseSSL:     cfg.Publish.MinIO.UseSSL,

			RetryCount:    cfg.Publish.MinIO.RetryCount,
			RetryInterval: time.Duration(cfg.Publish.MinIO.RetryInterval),
		})
		if err != nil {
			logger.Log.Fatal(
				"Unable to connect to minio after retries",
				zap.Error(err),
			)
		}
		publisher = app.NewMinioRenditionPublisher(minioClient)
	}

	// 6. optional job event stream
	events := app.NewNopJobEventPublisher()
	if cfg.Events.Enabled {
		kafkaWriter, err := database.NewKafkaWriterWithRetry(database.KafkaConnection{
			Brokers:       cfg.Events.Brokers,
			Topic:         cfg.Events.Topic,
			RetryCount:    cfg.Events.RetryCount,
			RetryInterval: time.Duration(cfg.Events.RetryInterval),
		})
		if err != nil {
			log.Fatalf("kafka writer failed: %v", err)
		}
		defer kafkaWriter.Close()
		events = app.NewKafkaJobEventPublisher(kafkaWriter)
	}

	// 7. transcode worker pool
	executor := app.NewFFmpegExecutor(cfg.FFmpeg.FFmpegPath, cfg.FFmpeg.FFprobePath)
	pipeline := app.NewTranscodePipeline(layout, executor, videoRepo, publisher)
	consumer := app.NewConsumer(rabbitChannel, jobQueue, videoRepo, pipeline, locks, events,
		domain.QueueName, cfg.Worker.Concurrency)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := consumer.StartConsumer(ctx); err != nil {
		log.Fatalf("consumer start failed: %v", err)
	}

	// 8. HTTP surface
	useCase := app.NewVideoUseCase(videoRepo, lessonRepo, layout, jobQueue)
	videoHandler := &handlers.VideoHandler{
		UseCase:       useCase,
		MaxFileSizeMB: int64(cfg.Upload.MaxFileSizeMB),
	}

	fiberApp := fiber.New(fiber.Config{
		BodyLimit: (cfg.Upload.MaxFileSizeMB + 1) * 1024 * 1024,
	})
	router.RegisterRoutes(fiberApp, videoHandler, layout.Root())

	addr := fmt.Sprintf("%s:%s", cfg.IP, cfg.Port)
	logger.Log.Info("video service listening", zap.String("addr", addr))
	if err := fiberApp.Listen(addr); err != nil {
		logger.Log.Fatal("fiber listen failed", zap.Error(err))
	}
}
