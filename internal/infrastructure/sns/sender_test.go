package sns

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/go-push-relay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSNS struct{ mock.Mock }

func (m *mockSNS) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*sns.PublishOutput)
	return out, args.Error(1)
}

func TestPublishReport(t *testing.T) {
	m := &mockSNS{}
	report := &domain.BroadcastReport{ID: "01J0", Sent: 2, Failed: 1, Total: 3, Errors: []string{"u3: gone"}}
	m.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		var got domain.BroadcastReport
		if err := json.Unmarshal([]byte(aws.ToString(in.Message)), &got); err != nil {
			return false
		}
		return aws.ToString(in.TopicArn) == "arn:aws:sns:us-east-1:1:push" && got.Sent == 2 && got.Total == 3
	})).Return(&sns.PublishOutput{}, nil)

	err := NewReportPublisher(m, "arn:aws:sns:us-east-1:1:push").PublishReport(context.Background(), report)

	require.NoError(t, err)
	m.AssertExpectations(t)
}

func TestPublishReport_Error(t *testing.T) {
	m := &mockSNS{}
	m.On("Publish", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	err := NewReportPublisher(m, "arn").PublishReport(context.Background(), &domain.BroadcastReport{ID: "x"})

	assert.ErrorContains(t, err, "throttled")
}
