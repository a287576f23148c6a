// Package notify sends report and status messages to Google Chat webhooks.
package notify

import (
	"fmt"
	"time"

	"reportbot/internal/domain"
	"reportbot/internal/report"
	"reportbot/internal/upload"
)

// Message is a chat card: a title, a text paragraph, an optional image and
// an optional link button.
type Message struct {
	Title    string
	Text     string
	ImageURL string
	LinkURL  string // click-through of the image and target of the button
	LinkText string // button label; no button when empty
}

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

var dimensionLabels = map[domain.Dimension]string{
	domain.DimensionCountry:     "Country",
	domain.DimensionManager:     "Manager",
	domain.DimensionProductLine: "Product Line",
}

// ReportMessage announces one report chart with its thumbnail and a link to
// the full-resolution image.
func ReportMessage(dim domain.Dimension, date time.Time, thumbURL, fullURL string) Message {
	label, ok := dimensionLabels[dim]
	if !ok {
		label = string(dim)
	}
	return Message{
		Title:    "Daily Report",
		Text:     fmt.Sprintf("📊 Báo cáo tiến độ kinh doanh theo %s ngày %s:", label, date.Format(dateLayout)),
		ImageURL: upload.EnsureHTTPS(thumbURL),
		LinkURL:  upload.EnsureHTTPS(fullURL),
		LinkText: "Open Full Image to Zoom",
	}
}

// ProductLineMessage links to the sheet holding the product line detail.
func ProductLineMessage(date time.Time, sheetURL string) Message {
	return Message{
		Title:    "Detail by Productline Report",
		Text:     fmt.Sprintf("📊 Dữ liệu chi tiết theo Product Line ngày %s\nLưu ý: Số liệu sẽ được overwrite theo ngày.", date.Format(dateLayout)),
		LinkURL:  sheetURL,
		LinkText: "Click on the link to see the detail report by productlines",
	}
}

// QualityFailMessage reports a metric that did not grow since the last run.
func QualityFailMessage(at time.Time, current, baseline float64) Message {
	return Message{
		Title: "❌ Data Quality Check Failed",
		Text: fmt.Sprintf("🔴 Data quality check failed on %s\n\n"+
			"Current NMV: %s\n"+
			"Last Run NMV: %s\n\n"+
			"❌ Current NMV is not greater than the last run in the same month.\n"+
			"Note: This check is bypassed on the first day of the month.\n"+
			"Please investigate the data quality issue.",
			at.Format(dateTimeLayout), report.FormatInt(current), report.FormatInt(baseline)),
	}
}

// QualityAbortMessage reports that the quality store itself failed. It is
// worded as infrastructure trouble, not as a data problem.
func QualityAbortMessage(at time.Time, err error) Message {
	return Message{
		Title: "❌ Data Quality Check Aborted",
		Text: fmt.Sprintf("🔴 Data quality check could not run on %s\n\n"+
			"❌ The quality baseline store is unavailable: %v\n"+
			"This is an infrastructure failure, not a data problem. Please check the system logs.",
			at.Format(dateTimeLayout), err),
	}
}

// ErrorMessage reports a run aborted at stage.
func ErrorMessage(at time.Time, stage domain.Stage, err error) Message {
	if stage == "" {
		stage = "unknown"
	}
	return Message{
		Title: "❌ Report Generation Failed",
		Text: fmt.Sprintf("🔴 Daily report generation failed on %s\n\n"+
			"❌ Stage: %s\n"+
			"Error: %v\n\n"+
			"Please check the system logs and investigate the issue.",
			at.Format(dateTimeLayout), stage, err),
	}
}

// SuccessMessage reports a completed run.
func SuccessMessage(at time.Time) Message {
	return Message{
		Title: "✅ Report Generation Successful",
		Text: fmt.Sprintf("🟢 Daily report generation completed successfully on %s\n\n"+
			"✅ Data quality check: PASSED\n"+
			"✅ Report generation: COMPLETED\n"+
			"✅ Notifications sent: SUCCESS\n\n"+
			"All processes completed without errors.",
			at.Format(dateTimeLayout)),
	}
}
