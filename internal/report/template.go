package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/uclone1/yt-competitor-monitor/internal/analysis"
)

// maxVideosPerChannel caps how many outperformers a channel card lists.
const maxVideosPerChannel = 10

type reportData struct {
	Date               string
	Summary            string
	TotalChannels      int
	TotalOutperformers int
	Channels           []channelSection
}

type channelSection struct {
	analysis.ChannelReport
	Top       []analysis.RankedVideo
	Remaining int
}

func newReportData(channels []analysis.ChannelReport, summary string, generatedAt time.Time) reportData {
	data := reportData{
		Date:          generatedAt.Format("January 02, 2006"),
		Summary:       summary,
		TotalChannels: len(channels),
	}

	for _, ch := range channels {
		section := channelSection{ChannelReport: ch, Top: ch.Outperformers}
		if len(section.Top) > maxVideosPerChannel {
			section.Remaining = len(section.Top) - maxVideosPerChannel
			section.Top = section.Top[:maxVideosPerChannel]
		}

		data.TotalOutperformers += len(ch.Outperformers)
		data.Channels = append(data.Channels, section)
	}

	return data
}

// formatViews renders a view count in the shorthand used across the report,
// "1.2M" and "3.4K" above the thousand marks and the plain number below.
func formatViews(views int64) string {
	switch {
	case views >= 1000000:
		return fmt.Sprintf("%.1fM", float64(views)/1000000)
	case views >= 1000:
		return fmt.Sprintf("%.1fK", float64(views)/1000)
	default:
		return strconv.FormatInt(views, 10)
	}
}

// formatRatio renders a performance ratio as percentage above average, "+46%".
func formatRatio(ratio float64) string {
	return fmt.Sprintf("+%.0f%%", (ratio-1)*100)
}

func ratioColor(ratio float64) string {
	switch {
	case ratio >= 2.0:
		return "#27ae60"
	case ratio >= 1.5:
		return "#f39c12"
	default:
		return "#3498db"
	}
}

func subjectLine(totalOutperformers int, date string) string {
	return fmt.Sprintf("🎯 YouTube Competitor Report — %d Outperforming Videos (%s)", totalOutperformers, date)
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"views":      formatViews,
	"avgViews":   func(avg float64) string { return formatViews(int64(avg)) },
	"ratio":      formatRatio,
	"ratioColor": ratioColor,
}).Parse(reportTemplateHTML))

func renderHTMLReport(data reportData) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// buildPlainReport renders the plain-text alternative for clients that do
// not display HTML.
func buildPlainReport(data reportData) string {
	var b strings.Builder

	fmt.Fprintf(&b, "YouTube Competitor Report for %s\n", data.Date)
	fmt.Fprintf(&b, "Found %d outperforming videos.\n\n", data.TotalOutperformers)

	if data.Summary != "" {
		fmt.Fprintf(&b, "%s\n", data.Summary)
	}

	for _, ch := range data.Channels {
		fmt.Fprintf(&b, "\n%s (%s):\n", ch.ChannelName, ch.Handle)
		fmt.Fprintf(&b, "  Average views: %d\n", int64(ch.AvgViews))

		for _, v := range ch.Top {
			fmt.Fprintf(&b, "  - %s (%s views, %s above avg)\n", v.Title, formatViews(v.Views), formatRatio(v.Ratio))
			fmt.Fprintf(&b, "    %s\n", v.Link)
		}
	}

	return b.String()
}

const reportTemplateHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin:0; padding:0; background-color:#0f0f0f; font-family:'Segoe UI', Arial, sans-serif;">
<div style="max-width:700px; margin:20px auto; background-color:#1a1a2e; border-radius:12px; overflow:hidden;">

  <div style="background:linear-gradient(135deg, #667eea 0%, #764ba2 100%); padding:30px; text-align:center;">
    <h1 style="color:#ffffff; font-size:24px; margin:0 0 8px 0; font-weight:700;">🎯 YouTube Competitor Report</h1>
    <p style="color:#e0d4f7; font-size:14px; margin:0;">{{.Date}} &bull; UAbility Competitive Intelligence</p>
  </div>

  <div style="display:flex; padding:20px 30px; background-color:#16213e; border-bottom:1px solid #2a2a4a;">
    <div style="flex:1; text-align:center; padding:10px;">
      <div style="color:#667eea; font-size:28px; font-weight:700;">{{.TotalChannels}}</div>
      <div style="color:#8888aa; font-size:12px; text-transform:uppercase; letter-spacing:1px;">Channels Analyzed</div>
    </div>
    <div style="flex:1; text-align:center; padding:10px; border-left:1px solid #2a2a4a;">
      <div style="color:#f093fb; font-size:28px; font-weight:700;">{{.TotalOutperformers}}</div>
      <div style="color:#8888aa; font-size:12px; text-transform:uppercase; letter-spacing:1px;">Outperforming Videos</div>
    </div>
  </div>

{{- if .Summary}}
  <div style="padding:20px 30px; background-color:#16213e; border-bottom:1px solid #2a2a4a;">
    <p style="color:#aaaacc; font-size:13px; line-height:1.6; margin:0;">💡 {{.Summary}}</p>
  </div>
{{- end}}

  <div style="padding:20px 30px;">
{{- if not .Channels}}
    <div style="text-align:center; padding:40px; color:#8888aa;">
      <p style="font-size:18px;">No outperforming videos found today.</p>
      <p style="font-size:13px;">All competitor channels are performing at baseline.</p>
    </div>
{{- else}}
{{- range .Channels}}
    <div style="margin-bottom:25px; border:1px solid #2a2a4a; border-radius:10px; overflow:hidden; background-color:#16213e;">
      <div style="padding:15px 20px; background-color:#1a1a3e; border-bottom:1px solid #2a2a4a;">
        <h2 style="color:#e0e0ff; font-size:16px; margin:0 0 4px 0;">📺 {{.ChannelName}}</h2>
        <p style="color:#6a6a8a; font-size:12px; margin:0;">{{.Handle}} &bull; {{views .Subscribers}} subscribers &bull; Avg: {{avgViews .AvgViews}} views/video</p>
      </div>
      <div style="padding:10px 15px;">
{{- range .Top}}
        <div style="display:flex; padding:10px; margin:5px 0; background-color:#1e2747; border-radius:8px; border-left:3px solid {{ratioColor .Ratio}};">
          <div style="flex:1; min-width:0;">
            <a href="{{.Link}}" style="color:#c8c8ff; font-size:13px; text-decoration:none; font-weight:600; display:block; overflow:hidden; text-overflow:ellipsis; white-space:nowrap;">{{.Title}}</a>
            <div style="margin-top:5px; display:flex; gap:12px; flex-wrap:wrap;">
              <span style="color:#8888aa; font-size:11px;">👁 {{views .Views}} views</span>
              <span style="color:{{ratioColor .Ratio}}; font-size:11px; font-weight:700;">{{ratio .Ratio}} above avg</span>
              <span style="color:#8888aa; font-size:11px;">🕐 {{.PublishedTime}}</span>
{{- if .Recent}}
              <span style="background:#27ae60; color:#fff; font-size:10px; padding:2px 6px; border-radius:3px;">RECENT</span>
{{- end}}
{{- if .Fresh}}
              <span style="background:#764ba2; color:#fff; font-size:10px; padding:2px 6px; border-radius:3px;">NEW</span>
{{- end}}
            </div>
          </div>
        </div>
{{- end}}
{{- if gt .Remaining 0}}
        <p style="color:#6a6a8a; font-size:12px; text-align:center; padding:5px;">... and {{.Remaining}} more outperforming videos</p>
{{- end}}
      </div>
    </div>
{{- end}}
{{- end}}
  </div>

  <div style="padding:20px 30px; background-color:#0f0f1e; text-align:center; border-top:1px solid #2a2a4a;">
    <p style="color:#555577; font-size:11px; margin:0;">Automated by UAbility YouTube Monitor &bull; Powered by ScrapingDog API</p>
  </div>
</div>
</body>
</html>
`
