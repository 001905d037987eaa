package boot

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path"
	"ptx/src/common"
	"ptx/src/config"
	"ptx/src/db"
	"ptx/src/lib"
	awslib "ptx/src/lib/aws"
	"ptx/src/models"
	"ptx/src/types"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.User{},
		&models.Development{},
		&models.Unit{},
		&models.Sale{},
		&models.Payment{},
		&models.SaleEvent{},
		&models.JobTask{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

func InitBroker() {
	go RecoverQueuedJobs()
	go UpdateExpiredJobs()
	apiEnv := config.API_ENV
	if apiEnv == string(types.Test) || apiEnv == string(types.Production) {
		// the expiry schedule publishes to SNS, the consumer queue must be subscribed
		go func() {
			queueArn := os.Getenv("RESERVATION_EXPIRY_QUEUE_ARN")
			if queueArn == "" {
				return
			}
			sub := awslib.NewSNSSubscriber("ReservationExpiry")
			if sub == nil {
				return
			}
			if _, err := sub.Subscribe("sqs", queueArn); err != nil {
				log.Printf("Error subscribing expiry queue: %s\n", err.Error())
			}
		}()
	} else {
		go lib.KafkaCreateTopics("SaleNotifications", "EmailQueue", "ReservationExpiry")
	}
	go common.NotificationsConsumer()
	go common.EmailQueueConsumer()
	go common.ReservationExpiryConsumer()
}

func InitScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	jobsWaitingInQueue := len(sched.Jobs())
	log.Println("Jobs in queue:", jobsWaitingInQueue)
	sched.Start()
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("Error retrieving Scheduler. Check logs for info")
		return
	}
	err = sched.Shutdown()
	if err != nil {
		log.Println("An error has occurred while stopping Scheduler. Check logs for info")
		return
	}
}

// RecoverQueuedJobs re-registers pending one-shot jobs after a restart so
// reservation expiries are not lost with the process.
func RecoverQueuedJobs() error {
	sched, err := lib.GetScheduler()
	if err != nil {
		return err
	}
	db := db.GetDb()
	ss := db.Session(&gorm.Session{PrepareStmt: true})
	var jobTasks []models.JobTask
	today := time.Now()
	in1m := today.Add(1 * time.Minute)
	in3months := today.Add((24 * 30 * 3) * time.Hour)
	err = ss.
		Model(&models.JobTask{}).Select("id", "name", "payload", "topic", "runs_at").
		Where(&models.JobTask{Status: "pending", JobType: "OneTimeJobStartDateTime"}).
		Where("runs_at BETWEEN ? AND ?", in1m, in3months).
		Order("runs_at asc").
		Limit(100).
		Find(&jobTasks).
		Error
	if err != nil {
		log.Printf("Error retrieving jobs: %s\n", err.Error())
		return err
	}
	log.Printf("Found %d pending jobs", len(jobTasks))
	for _, jobTask := range jobTasks {
		log.Printf("Queueing: %s\n", jobTask.ID.String())
		jobDef := gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(jobTask.RunsAt))
		payload := jobTask.Payload
		topic := jobTask.Topic
		jt := gocron.NewTask(func() {
			log.Println("Running scheduled task")
			if err := lib.KafkaProduceMessage(payload["producerClientId"].(string), topic, &payload); err != nil {
				log.Printf("Error on producing message: %s\n", err.Error())
				return
			}
		})
		job, err := sched.NewJob(
			jobDef,
			jt,
		)
		if err != nil {
			log.Printf("Failed to schedule job [%s]. Skipping: %s\n", jobTask.ID.String(), err.Error())
			continue
		}
		log.Printf("Added job to scheduler: name=%s id=%s job=%s\n", jobTask.Name, jobTask.ID.String(), job.ID().String())
	}

	return nil
}

func UpdateExpiredJobs() {
	db := db.GetDb()
	err := db.
		Transaction(func(tx *gorm.DB) error {
			err := tx.Model(&models.JobTask{}).
				Where("status", "pending").
				Where("runs_at < ?", time.Now()).
				Update("status", "expired").Error
			if err != nil {
				return err
			}
			return nil
		})
	if err != nil {
		log.Printf("Error while processing expired jobs: %s\n", err.Error())
	}
}

func DownloadSDKFileFromS3() {
	cwd, _ := os.Getwd()
	log.Printf("[S3] cwd:%s\n", cwd)
	filename := "admin-sdk-credentials.json"
	sdkFilePath := path.Join("/secrets", filename)
	_, err := os.Stat(sdkFilePath)
	if errors.Is(err, os.ErrNotExist) {
		log.Println("File not found. Downloading...")
		client := lib.AWSGetS3Client()
		adminSdkObjectKey := filename
		secretsBucket := os.Getenv("S3_SECRETS_BUCKET")
		object, err := client.GetObject(context.Background(), &s3.GetObjectInput{
			Bucket: aws.String(secretsBucket),
			Key:    aws.String(adminSdkObjectKey),
		})
		if err != nil {
			log.Printf("[S3] Error retrieving object: %s\n", err.Error())
			return
		}
		defer object.Body.Close()
		file, err := os.Create(sdkFilePath)
		if err != nil {
			log.Printf("Could not create file %s: %s\n", filename, err.Error())
			return
		}
		defer file.Close()
		body, err := io.ReadAll(object.Body)
		if err != nil {
			log.Printf("Couldn't read object body from %s: %s\n", filename, err.Error())
			return
		}
		_, err = file.Write(body)
		if err != nil {
			log.Printf("Error writing to file: %s\n", err.Error())
			return
		}
		log.Println("File has been written")
	}
	log.Println("File exists!")
}
