package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// SNSAPI subconjunto del cliente SNS usado aquí.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSConfig región, tópico y endpoint opcional (LocalStack).
type SNSConfig struct {
	Region          string
	TopicARN        string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// SNSNotifier publica cada alerta como JSON en un tópico SNS.
type SNSNotifier struct {
	client   SNSAPI
	topicARN string
}

// NewSNSNotifier usa un cliente ya construido (tests o configuración propia).
func NewSNSNotifier(client SNSAPI, topicARN string) *SNSNotifier {
	return &SNSNotifier{client: client, topicARN: topicARN}
}

// NewSNSNotifierFromConfig carga la configuración AWS por defecto con las sobreescrituras de cfg.
func NewSNSNotifierFromConfig(ctx context.Context, cfg SNSConfig) (*SNSNotifier, error) {
	if cfg.TopicARN == "" {
		return nil, fmt.Errorf("sns: topic ARN vacío")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(region)}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewSNSNotifier(client, cfg.TopicARN), nil
}

// Notify publica la alerta; store_id y nivel van también como atributos para filtrar suscripciones.
func (n *SNSNotifier) Notify(ctx context.Context, a *entity.LowStockAlert) error {
	body, err := encode(a)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	_, err = n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event_type":  {DataType: aws.String("String"), StringValue: aws.String(EventLowStock)},
			"store_id":    {DataType: aws.String("String"), StringValue: aws.String(a.StoreID)},
			"alert_level": {DataType: aws.String("String"), StringValue: aws.String(a.AlertLevel)},
		},
	})
	if err != nil {
		return fmt.Errorf("sns publish %s: %w", n.topicARN, err)
	}
	return nil
}
