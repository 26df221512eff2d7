package events

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"htnadmin/internal/config"
	"htnadmin/internal/journal"
	"htnadmin/internal/logging"
)

type sqsSender interface {
	SendMessage(ctx context.Context, in *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSPublisher sends each action as one SQS message.
type SQSPublisher struct {
	client   sqsSender
	queueURL string
}

// NewSQSPublisher resolves AWS credentials the standard way and creates a
// client for cfg.QueueURL. Endpoint overrides support localstack.
func NewSQSPublisher(ctx context.Context, cfg config.SQSConfig) (*SQSPublisher, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	endpoint := awsCfg.BaseEndpoint
	if cfg.Endpoint != "" {
		endpoint = aws.String(cfg.Endpoint)
	}
	client := sqs.New(sqs.Options{
		Region:       awsCfg.Region,
		Credentials:  awsCfg.Credentials,
		HTTPClient:   awsCfg.HTTPClient,
		BaseEndpoint: endpoint,
	})
	return &SQSPublisher{client: client, queueURL: cfg.QueueURL}, nil
}

// Record implements journal.Recorder.
func (p *SQSPublisher) Record(ctx context.Context, a journal.Action) error {
	body, err := Encode(a)
	if err != nil {
		return err
	}
	msg := string(body)

	ctx, cancel := withPublishTimeout(ctx)
	defer cancel()
	_, err = p.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    &p.queueURL,
		MessageBody: &msg,
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"kind": {DataType: aws.String("String"), StringValue: aws.String(string(a.Kind))},
		},
	})
	if err != nil {
		logging.EventsError("SQS publish of %s failed: %v", a.Kind, err)
		return fmt.Errorf("sqs publish: %w", err)
	}
	logging.Events("Sent %s (%s) to SQS", a.Kind, a.ID)
	return nil
}

// Close is a no-op; the SQS client holds no connections of its own.
func (p *SQSPublisher) Close() error { return nil }
