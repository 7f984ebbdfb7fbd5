package main

import (
	"log"

	"github.com/WinterTamarind/auth_service/config"
	"github.com/WinterTamarind/auth_service/infra/queue"
	"github.com/WinterTamarind/auth_service/internal/mail"
)

func main() {
	// ---------- Load Config ----------
	cfg := config.LoadConfig()

	log.Println("Mail Service starting...")
	log.Printf("KafkaBroker=%s Topic=%s GroupID=%s\n",
		cfg.KafkaBroker,
		cfg.KafkaTopic,
		cfg.KafkaGroupID,
	)

	// ---------- Init Service ----------
	mailService := mail.NewMailService(
		cfg.GmailUser,
		cfg.GmailAppPassword,
		cfg.MailFrom,
		cfg.MailFromName,
		cfg.MailSubject,
		cfg.MailTemplatePath,
	)

	// ---------- Init Handler ----------
	handler := mail.NewMailHandler(mailService)

	// ---------- Init Kafka Consumer ----------
	consumer := queue.NewKafkaConsumer(
		cfg.KafkaBroker,
		cfg.KafkaTopic,
		cfg.KafkaGroupID,
		cfg.KafkaUsername,
		cfg.KafkaPassword,
		handler,
	)

	// ---------- Start Listening ----------
	log.Println("Mail Service listening for events...")
	consumer.Listen()
}
