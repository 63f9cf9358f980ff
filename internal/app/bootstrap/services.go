package bootstrap

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/dentalbook/internal/auth"
	"github.com/wolfman30/dentalbook/internal/clinic"
	appconfig "github.com/wolfman30/dentalbook/internal/config"
	"github.com/wolfman30/dentalbook/internal/locks"
	"github.com/wolfman30/dentalbook/internal/notify"
	"github.com/wolfman30/dentalbook/internal/reports"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

// BuildClinicStore returns the Redis profile store, or an in-memory one when
// Redis is unavailable.
func BuildClinicStore(redisClient *redis.Client, cfg *appconfig.Config) clinic.Store {
	if redisClient == nil {
		return clinic.NewMemoryStore(cfg.ClinicTZ)
	}
	return clinic.NewRedisStore(redisClient, cfg.ClinicTZ)
}

// BuildLocker returns the slot locker for public bookings.
func BuildLocker(redisClient *redis.Client, cfg *appconfig.Config) locks.Locker {
	if redisClient == nil {
		return locks.NewMemoryLocker(cfg.SlotLockTTL)
	}
	return locks.NewRedisLocker(redisClient, cfg.SlotLockTTL)
}

// BuildRevocations returns where signed-out session ids are remembered.
func BuildRevocations(redisClient *redis.Client) auth.Revocations {
	if redisClient == nil {
		return auth.NewMemoryRevocations()
	}
	return auth.NewRedisRevocations(redisClient)
}

// BuildAccounts returns the staff account store.
func BuildAccounts(pool *pgxpool.Pool) auth.AccountStore {
	if pool == nil {
		return auth.NewMemoryAccounts()
	}
	return auth.NewPostgresAccounts(pool)
}

// BuildEmailSender selects the outbound email provider. awsCfg is only read
// for the SES provider.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) notify.EmailSender {
	senderCfg := notify.SenderConfig{
		Provider: cfg.EmailProvider,
		SendGrid: notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: firstNonEmpty(cfg.SendGridFromEmail, cfg.EmailFromAddress),
			FromName:  cfg.SendGridFromName,
		},
		SES: notify.SESConfig{
			FromEmail: cfg.EmailFromAddress,
			FromName:  cfg.EmailFromName,
		},
	}
	if strings.EqualFold(cfg.EmailProvider, notify.ProviderSES) && awsCfg != nil {
		senderCfg.SESClient = sesv2.NewFromConfig(*awsCfg)
	}
	return notify.NewSender(senderCfg, logger)
}

// BuildReportArchive returns the S3 archive for exported reports. It is
// disabled when REPORTS_BUCKET is empty.
func BuildReportArchive(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) *reports.Archive {
	bucket := strings.TrimSpace(cfg.ReportsBucket)
	if bucket == "" || awsCfg == nil {
		return reports.NewArchive(nil, "", logger)
	}
	client := s3.NewFromConfig(*awsCfg, func(o *s3.Options) {
		if cfg.AWSEndpointOverride != "" {
			o.UsePathStyle = true
		}
	})
	return reports.NewArchive(client, bucket, logger)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
