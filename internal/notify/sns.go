// Package notify delivers rotation reminders through AWS SNS with a bounded
// retry policy for transient publish failures.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/aws/smithy-go"

	vwerrors "github.com/keeperops/vaultward/internal/errors"
	"github.com/keeperops/vaultward/internal/rotation"
)

// maxSubjectLength is the SNS limit: subjects must be ASCII and at most 100
// characters.
const maxSubjectLength = 100

// PublishAPI is the slice of the SNS client the notifier uses. Allows mock
// clients in tests.
type PublishAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Config holds the SNS connection and rendering settings.
type Config struct {
	Region        string
	TopicARN      string
	AccessKey     string
	SecretKey     string
	Endpoint      string // optional, e.g. LocalStack
	SubjectPrefix string
	MaxLines      int
	ItemBaseURL   string // web-vault base URL for deep links, optional
}

// RetryPolicy bounds delivery retries for transient publish failures.
type RetryPolicy struct {
	// MaxAttempts is the total attempt budget, first try included.
	MaxAttempts int

	// InitialWait is the first backoff; each retry doubles it.
	InitialWait time.Duration

	// Retryable classifies errors worth retrying. Defaults to AWS
	// throttling and server-side error codes.
	Retryable func(error) bool
}

// DefaultRetryPolicy retries transient errors up to five attempts with
// exponential backoff (1s, 2s, 4s, 8s between attempts).
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		InitialWait: time.Second,
		Retryable:   IsTransient,
	}
}

// IsTransient reports whether an SNS publish error is worth retrying.
func IsTransient(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "Throttling", "ThrottledException", "InternalError", "ServiceUnavailable":
		return true
	}
	return false
}

// SNSNotifier publishes rotation reminders to a single SNS topic.
type SNSNotifier struct {
	config Config
	retry  RetryPolicy
	client PublishAPI
	sleep  func(time.Duration)
}

// Option is a functional option for configuring the notifier.
type Option func(*SNSNotifier)

// WithClient sets a custom SNS client (for testing).
func WithClient(client PublishAPI) Option {
	return func(n *SNSNotifier) {
		n.client = client
	}
}

// WithSleep replaces the backoff sleep function (for testing).
func WithSleep(sleep func(time.Duration)) Option {
	return func(n *SNSNotifier) {
		n.sleep = sleep
	}
}

// NewSNSNotifier creates an SNS-backed notifier. The retry policy is fixed
// at construction; zero-valued fields fall back to DefaultRetryPolicy.
func NewSNSNotifier(ctx context.Context, config Config, retry RetryPolicy, opts ...Option) (*SNSNotifier, error) {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = DefaultRetryPolicy().MaxAttempts
	}
	if retry.InitialWait <= 0 {
		retry.InitialWait = DefaultRetryPolicy().InitialWait
	}
	if retry.Retryable == nil {
		retry.Retryable = IsTransient
	}

	n := &SNSNotifier{
		config: config,
		retry:  retry,
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(n)
	}

	if n.client == nil {
		configOpts := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(config.Region),
		}
		if config.AccessKey != "" && config.SecretKey != "" {
			configOpts = append(configOpts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(config.AccessKey, config.SecretKey, ""),
			))
		}

		cfg, err := awsconfig.LoadDefaultConfig(ctx, configOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}

		var clientOpts []func(*sns.Options)
		if config.Endpoint != "" {
			endpoint := config.Endpoint
			clientOpts = append(clientOpts, func(o *sns.Options) {
				o.BaseEndpoint = &endpoint
			})
		}
		n.client = sns.NewFromConfig(cfg, clientOpts...)
	}
	return n, nil
}

// Send publishes one rotation reminder. Transient publish errors are retried
// per the retry policy; exhaustion and non-transient errors surface as a
// DeliveryError.
func (n *SNSNotifier) Send(ctx context.Context, recipient string, candidates []rotation.Candidate, policySummary string) (rotation.Receipt, error) {
	input := &sns.PublishInput{
		TopicArn: aws.String(n.config.TopicARN),
		Subject:  aws.String(n.subject()),
		Message:  aws.String(BuildBody(candidates, policySummary, n.config.ItemBaseURL, n.config.MaxLines)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"recipient": {
				DataType:    aws.String("String"),
				StringValue: aws.String(recipient),
			},
		},
	}

	wait := n.retry.InitialWait
	for attempt := 1; ; attempt++ {
		out, err := n.client.Publish(ctx, input)
		if err == nil {
			messageID := ""
			if out.MessageId != nil {
				messageID = *out.MessageId
			}
			return rotation.Receipt{Recipient: recipient, MessageID: messageID}, nil
		}

		if !n.retry.Retryable(err) {
			return rotation.Receipt{}, vwerrors.DeliveryError{Recipient: recipient, Attempts: attempt, Err: err}
		}
		if attempt >= n.retry.MaxAttempts {
			return rotation.Receipt{}, vwerrors.DeliveryError{Recipient: recipient, Attempts: attempt, Err: err}
		}

		incrementRetryCounter()
		n.sleep(wait)
		wait *= 2
	}
}

// subject renders the message subject within SNS constraints: ASCII only,
// at most 100 characters.
func (n *SNSNotifier) subject() string {
	prefix := n.config.SubjectPrefix
	if prefix == "" {
		prefix = "Vaultwarden"
	}
	subject := asciiOnly(prefix) + " password rotation reminder"
	if len(subject) > maxSubjectLength {
		subject = subject[:maxSubjectLength]
	}
	return subject
}

// asciiOnly drops non-ASCII runes.
func asciiOnly(s string) string {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r < 128 {
			out = append(out, byte(r))
		}
	}
	return string(out)
}
