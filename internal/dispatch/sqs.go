package dispatch

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rotisserie/eris"
)

// SQSAPI is the subset of the SQS client used for dispatch.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSSender enqueues payloads for a worker that consumes from SQS.
type SQSSender struct {
	Client   SQSAPI
	QueueURL string
}

// NewSQSSender constructs an SQS-backed sender.
func NewSQSSender(ctx context.Context, region, queueURL string) (*SQSSender, error) {
	queueURL = strings.TrimSpace(queueURL)
	if queueURL == "" {
		return nil, eris.New("DISPATCH_SQS_QUEUE_URL is required")
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, eris.Wrap(err, "load aws config")
	}
	return &SQSSender{Client: sqs.NewFromConfig(cfg), QueueURL: queueURL}, nil
}

// Send delivers the payload to the configured queue.
func (s *SQSSender) Send(ctx context.Context, p Payload) error {
	body, err := EncodePayload(p)
	if err != nil {
		return eris.Wrap(err, "encode sqs payload")
	}
	_, err = s.Client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.QueueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"run_id":   {DataType: aws.String("String"), StringValue: aws.String(p.RunID)},
			"quote_id": {DataType: aws.String("String"), StringValue: aws.String(p.QuoteID)},
		},
	})
	return eris.Wrap(err, "sqs send message")
}

var _ Sender = (*SQSSender)(nil)
