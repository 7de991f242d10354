package main

import (
	"context"

	"dermsched/internal/slots/consumer"
	"dermsched/internal/slots/handler"
	"dermsched/internal/slots/repository"
	"dermsched/internal/slots/service"
	"dermsched/pkg/app"
	"dermsched/pkg/config"
	"dermsched/pkg/kafka"
	kafka_config "dermsched/pkg/kafka/config"
	kafka_middleware "dermsched/pkg/kafka/middleware"
	"dermsched/pkg/model"
)

const ServiceName = "slots"

func main() {
	cfg := config.Load(ServiceName)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}

	// Log all configuration values
	cfg.LogConfiguration()

	cfg.Log.Info("Starting Slots service")
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	kafkaCfg := kafka_config.Load()
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer := initProducer(cfg, kafkaCfg)
	defer producer.Close()

	slotService := initServices(cfg, producer)

	appointmentConsumer := initConsumer(cfg, kafkaCfg, slotService)
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	go func() {
		if err := appointmentConsumer.Start(consumerCtx); err != nil {
			cfg.Log.Error("appointment consumer stopped", "error", err)
		}
	}()
	defer appointmentConsumer.Close()

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		handler.NewSlotHandler(slotService, cfg.Log),
		handler.NewHealthHandler(cfg.Client.Mongo, cfg.Log),
	)
	serverApp.Run()
}

func initProducer(cfg *config.Config, kafkaCfg *kafka_config.Config) *kafka.Producer {
	producer, err := kafka.NewProducer(kafkaCfg, model.TopicSlots, model.TopicSlotsDLQ, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafka_middleware.MetricsProducerMiddleware())
	}
	return producer
}

func initServices(cfg *config.Config, producer *kafka.Producer) service.SlotService {
	slotRepo := repository.NewMongoSlotRepository(cfg)
	lockRepo := repository.NewSlotLockRepository(cfg)
	slotService := service.NewSlotService(slotRepo, lockRepo, producer, cfg)

	cfg.Log.Info("Slot service initialized", "database", cfg.MongoDatabaseName)
	return slotService
}

func initConsumer(cfg *config.Config, kafkaCfg *kafka_config.Config, slotService service.SlotService) *kafka.Consumer {
	appointments := consumer.NewAppointmentConsumer(slotService, cfg.Log)

	kafkaConsumer, err := kafka.NewConsumer(
		kafkaCfg,
		model.TopicAppointments,
		ServiceName,
		model.TopicAppointmentsDLQ,
		appointments.Handle,
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		kafkaConsumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
		kafkaConsumer.Use(kafka_middleware.MetricsConsumerMiddleware())
	}
	return kafkaConsumer
}
