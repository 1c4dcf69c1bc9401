// Package lambdaboot provides cold-start bootstrap logic for the API Lambda:
// AWS config, S3, DynamoDB, SSM parameter fetch for provider API keys, and
// startup logging. Each entry point's init() becomes a short composition of
// helpers that fatal on misconfiguration.
package lambdaboot

import (
	"context"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/ugc-factory/internal/logging"
	"github.com/fpang/ugc-factory/internal/store"
)

// AWSClients holds the core AWS SDK clients used across entry points.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// S3Clients holds the S3 client, presigner, and bucket name.
type S3Clients struct {
	Client    *s3.Client
	Presigner *s3.PresignClient
	Bucket    string
}

// InitAWS loads the default AWS config and returns it along with common clients.
func InitAWS() AWSClients {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		SSM:    ssm.NewFromConfig(cfg),
	}
}

// InitS3 creates an S3 client, presigner, and reads the bucket name from the
// given environment variable. Fatals if the env var is empty.
func InitS3(cfg aws.Config, bucketEnvVar string) S3Clients {
	client := s3.NewFromConfig(cfg)
	bucket := os.Getenv(bucketEnvVar)
	if bucket == "" {
		log.Fatal().Str("envVar", bucketEnvVar).Msg("Bucket environment variable is required")
	}
	return S3Clients{
		Client:    client,
		Presigner: s3.NewPresignClient(client),
		Bucket:    bucket,
	}
}

// AssetStore builds the project asset store from initialized S3 clients.
func (c S3Clients) AssetStore() *store.AssetStore {
	return store.NewAssetStore(c.Client, c.Presigner, c.Bucket)
}

// InitDynamo creates a DynamoDB project store from the given config and
// table name environment variable. Fatals if the env var is empty.
func InitDynamo(cfg aws.Config, tableEnvVar string) *store.DynamoStore {
	tableName := os.Getenv(tableEnvVar)
	if tableName == "" {
		log.Fatal().Str("envVar", tableEnvVar).Msg("DynamoDB table environment variable is required")
	}
	ddbClient := dynamodb.NewFromConfig(cfg)
	return store.NewDynamoStore(ddbClient, tableName)
}

// keyParam describes one provider API key resolvable from env or SSM.
type keyParam struct {
	envVar       string
	ssmEnvVar    string
	defaultParam string
	required     bool
}

var providerKeys = []keyParam{
	{envVar: "GEMINI_API_KEY", ssmEnvVar: "SSM_GEMINI_KEY_PARAM", defaultParam: "/ugc-factory/prod/gemini-api-key", required: true},
	{envVar: "PERPLEXITY_API_KEY", ssmEnvVar: "SSM_PERPLEXITY_KEY_PARAM", defaultParam: "/ugc-factory/prod/perplexity-api-key"},
	{envVar: "KLING_ACCESS_KEY", ssmEnvVar: "SSM_KLING_ACCESS_KEY_PARAM", defaultParam: "/ugc-factory/prod/kling-access-key"},
	{envVar: "KLING_SECRET_KEY", ssmEnvVar: "SSM_KLING_SECRET_KEY_PARAM", defaultParam: "/ugc-factory/prod/kling-secret-key"},
	{envVar: "ELEVENLABS_API_KEY", ssmEnvVar: "SSM_ELEVENLABS_KEY_PARAM", defaultParam: "/ugc-factory/prod/elevenlabs-api-key"},
}

// LoadProviderKeys fetches provider API keys from SSM Parameter Store for
// any key not already set in the environment. The Gemini key is required
// and fatals when unavailable; the rest degrade the relevant provider to
// unconfigured with a warning.
func LoadProviderKeys(ssmClient *ssm.Client) {
	for _, kp := range providerKeys {
		if os.Getenv(kp.envVar) != "" {
			continue
		}
		paramName := os.Getenv(kp.ssmEnvVar)
		if paramName == "" {
			paramName = kp.defaultParam
		}
		ssmStart := time.Now()
		result, err := ssmClient.GetParameter(context.Background(), &ssm.GetParameterInput{
			Name:           &paramName,
			WithDecryption: aws.Bool(true),
		})
		if err != nil {
			if kp.required {
				log.Fatal().Err(err).Str("param", paramName).Msg("Failed to read required API key from SSM")
			}
			log.Warn().Err(err).Str("param", paramName).Str("envVar", kp.envVar).Msg("API key not found in SSM — provider disabled")
			continue
		}
		os.Setenv(kp.envVar, *result.Parameter.Value)
		log.Debug().Str("param", paramName).Dur("elapsed", time.Since(ssmStart)).Msg("API key loaded from SSM")
	}
}

// StartupLog is a convenience wrapper for the startup logger.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
