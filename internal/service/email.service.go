package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"
	"tradejournal/internal/domain"
	"tradejournal/internal/logger"
	"tradejournal/internal/repository"
)

// EmailService renders and sends the analysis digest. it does not
// compute anything, the analysis is passed in already aggregated
type EmailService interface {
	SendAnalysisDigest(ctx context.Context, to string, asOf string, timeframes map[domain.Timeframe]domain.TimeframeAnalysis) error

	// GenerateAnalysisDigest renders the message without a recipient.
	// split out so a digest can be previewed without sending it
	GenerateAnalysisDigest(asOf string, timeframes map[domain.Timeframe]domain.TimeframeAnalysis) (*repository.EmailMessage, error)
}

type emailServiceHandler struct {
	EmailRepository repository.EmailRepository
}

func NewEmailService(
	emailRepository repository.EmailRepository,
) EmailService {
	return &emailServiceHandler{
		EmailRepository: emailRepository,
	}
}

func (h *emailServiceHandler) SendAnalysisDigest(ctx context.Context, to string, asOf string, timeframes map[domain.Timeframe]domain.TimeframeAnalysis) error {
	if to == "" {
		return domain.ValidationError{Message: "recipient is required"}
	}
	message, err := h.GenerateAnalysisDigest(asOf, timeframes)
	if err != nil {
		return err
	}
	message.To = to
	if err := h.EmailRepository.SendEmail(ctx, *message); err != nil {
		return fmt.Errorf("failed to send analysis digest: %w", err)
	}
	logger.FromContext(ctx).Infof("sent analysis digest for %s to %s", asOf, to)
	return nil
}

type digestRow struct {
	Timeframe domain.Timeframe
	Headline  string
	Drawdown  string
	Summary   string
	Actions   []string
}

var digestTemplate = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, Helvetica, Arial, sans-serif; color: #222;">
  <h2>Trading journal as of {{.AsOf}}</h2>
  <table cellpadding="6" style="border-collapse: collapse;">
    <tr style="text-align: left; border-bottom: 1px solid #ccc;">
      <th>Window</th><th>P/L</th><th>Drawdown</th>
    </tr>
    {{range .Rows}}
    <tr>
      <td>{{.Timeframe}}</td><td>{{.Headline}}</td><td>{{.Drawdown}}</td>
    </tr>
    {{end}}
  </table>
  {{range .Rows}}
  <h3>{{.Timeframe}}</h3>
  <p>{{.Summary}}</p>
  {{if .Actions}}<ul>{{range .Actions}}<li>{{.}}</li>{{end}}</ul>{{end}}
  {{end}}
</body>
</html>
`))

var digestTextTemplate = texttemplate.Must(texttemplate.New("digest").Parse(`Trading journal as of {{.AsOf}}
{{range .Rows}}
{{.Timeframe}}: {{.Headline}} (drawdown {{.Drawdown}})
{{.Summary}}
{{range .Actions}}- {{.}}
{{end}}{{end}}`))

func formatDollars(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("$%.2f", v)
}

func (h *emailServiceHandler) GenerateAnalysisDigest(asOf string, timeframes map[domain.Timeframe]domain.TimeframeAnalysis) (*repository.EmailMessage, error) {
	rows := []digestRow{}
	for _, tf := range domain.AllTimeframes {
		analysis, ok := timeframes[tf]
		if !ok {
			continue
		}
		headline := ""
		switch {
		case analysis.KPIs.TotalPL != nil:
			headline = formatDollars(*analysis.KPIs.TotalPL)
		case analysis.KPIs.PLChangeAbs != nil:
			headline = formatDollars(*analysis.KPIs.PLChangeAbs)
		}
		rows = append(rows, digestRow{
			Timeframe: tf,
			Headline:  headline,
			Drawdown:  formatDollars(analysis.KPIs.MaxDrawdownAbs),
			Summary:   analysis.Summary,
			Actions:   analysis.Actions,
		})
	}

	subject := fmt.Sprintf("Your trading journal for %s", asOf)
	if all, ok := timeframes[domain.TimeframeAll]; ok && all.KPIs.TotalPL != nil {
		subject = fmt.Sprintf("Your trading journal for %s: %s total P/L", asOf, formatDollars(*all.KPIs.TotalPL))
	}

	data := struct {
		AsOf string
		Rows []digestRow
	}{
		AsOf: asOf,
		Rows: rows,
	}
	html := bytes.Buffer{}
	if err := digestTemplate.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("failed to render analysis digest: %w", err)
	}
	text := strings.Builder{}
	if err := digestTextTemplate.Execute(&text, data); err != nil {
		return nil, fmt.Errorf("failed to render plain analysis digest: %w", err)
	}

	return &repository.EmailMessage{
		Subject:  subject,
		HTMLBody: html.String(),
		TextBody: text.String(),
		Kind:     "analysis_digest",
	}, nil
}
