package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"tradejournal/internal/domain"
	"tradejournal/internal/repository"
	mock_repository "tradejournal/internal/repository/mocks"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func f64(v float64) *float64 {
	return &v
}

func sampleAnalysis() map[domain.Timeframe]domain.TimeframeAnalysis {
	return map[domain.Timeframe]domain.TimeframeAnalysis{
		domain.TimeframeAll: {
			Summary: "Up on AAPL & MSFT.",
			KPIs: domain.TimeframeKPIs{
				TotalPL:        f64(1250.5),
				PLAbs:          f64(1250.5),
				MaxDrawdownAbs: -320,
			},
			Actions: []string{"Trim the winners.", "Review <stops>."},
		},
		domain.Timeframe1M: {
			Summary: "A quiet month.",
			KPIs: domain.TimeframeKPIs{
				PLChangeAbs:    f64(-40),
				MaxDrawdownAbs: -75.25,
			},
			Actions: []string{},
		},
	}
}

func Test_emailServiceHandler_GenerateAnalysisDigest(t *testing.T) {
	emailService := NewEmailService(nil)

	message, err := emailService.GenerateAnalysisDigest("2024-01-05", sampleAnalysis())
	require.NoError(t, err)
	require.Equal(t, "Your trading journal for 2024-01-05: $1250.50 total P/L", message.Subject)
	require.Equal(t, "analysis_digest", message.Kind)
	require.Empty(t, message.To)
	body := message.HTMLBody
	require.Contains(t, body, "<td>ALL</td><td>$1250.50</td><td>-$320.00</td>")
	require.Contains(t, body, "<td>1M</td><td>-$40.00</td><td>-$75.25</td>")
	require.Contains(t, body, "Up on AAPL &amp; MSFT.")
	require.Contains(t, body, "<li>Review &lt;stops&gt;.</li>")
	// windows without an analysis are left out
	require.False(t, strings.Contains(body, "<td>YTD</td>"))
	require.Less(t, strings.Index(body, "<h3>ALL</h3>"), strings.Index(body, "<h3>1M</h3>"))

	// the plain part is not escaped
	require.Contains(t, message.TextBody, "ALL: $1250.50 (drawdown -$320.00)")
	require.Contains(t, message.TextBody, "- Review <stops>.")
	require.Contains(t, message.TextBody, "1M: -$40.00 (drawdown -$75.25)")
}

// renders the digest to a file for a manual look
func Test_emailServiceHandler_GenerateAnalysisDigest_Preview(t *testing.T) {
	if true {
		t.Skip("Skipping template preview - set condition to false to run")
	}
	message, err := NewEmailService(nil).GenerateAnalysisDigest("2024-01-05", sampleAnalysis())
	require.NoError(t, err)

	previewFile := "/tmp/digest_preview.html"
	require.NoError(t, os.WriteFile(previewFile, []byte(message.HTMLBody), 0644))
	t.Logf("Preview saved to: %s", previewFile)
}

func Test_emailServiceHandler_SendAnalysisDigest(t *testing.T) {
	ctx := context.Background()

	t.Run("sends the rendered digest", func(t *testing.T) {
		emailRepository := mock_repository.NewMockEmailRepository(gomock.NewController(t))
		emailService := NewEmailService(emailRepository)

		emailRepository.EXPECT().
			SendEmail(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, message repository.EmailMessage) error {
				require.Equal(t, "trader@example.com", message.To)
				require.Equal(t, "Your trading journal for 2024-01-05: $1250.50 total P/L", message.Subject)
				require.Contains(t, message.HTMLBody, "A quiet month.")
				require.Contains(t, message.TextBody, "A quiet month.")
				return nil
			})
		require.NoError(t, emailService.SendAnalysisDigest(ctx, "trader@example.com", "2024-01-05", sampleAnalysis()))
	})

	t.Run("wraps delivery errors", func(t *testing.T) {
		emailRepository := mock_repository.NewMockEmailRepository(gomock.NewController(t))
		emailService := NewEmailService(emailRepository)
		sesErr := errors.New("throttled")

		emailRepository.EXPECT().SendEmail(gomock.Any(), gomock.Any()).Return(sesErr)
		err := emailService.SendAnalysisDigest(ctx, "trader@example.com", "2024-01-05", sampleAnalysis())
		require.ErrorIs(t, err, sesErr)
	})

	t.Run("needs a recipient", func(t *testing.T) {
		err := NewEmailService(nil).SendAnalysisDigest(ctx, "", "2024-01-05", sampleAnalysis())
		validationErr := domain.ValidationError{}
		require.True(t, errors.As(err, &validationErr))
	})
}
