// Package analysis implements the outperformer detection engine. A video
// outperforms when its view count sits above its channel's average across
// all videos with a known, positive view count.
package analysis

import (
	"log/slog"
	"math"
	"sort"

	"github.com/uclone1/yt-competitor-monitor/internal/scrapingdog"
)

// Settings carries the detection thresholds.
type Settings struct {
	// RecentDays bounds the age for a video to be flagged as recent.
	RecentDays int
	// MinRatio is the minimum views-to-average ratio to even consider a
	// video. Values at or below 1.0 are still dropped afterwards, since
	// outperforming means strictly above average.
	MinRatio float64
}

// RankedVideo is a video that cleared the outperformance bar.
type RankedVideo struct {
	scrapingdog.Video

	// Ratio is views divided by the channel average, rounded to two
	// decimals.
	Ratio float64
	// Recent is set when the video's age is known and within RecentDays.
	Recent bool
	// Fresh is set by the pipeline when the video was never flagged in an
	// earlier run.
	Fresh bool
}

// ChannelReport summarizes the analysis of one channel.
type ChannelReport struct {
	ChannelName    string
	Handle         string
	Subscribers    int64
	AvgViews       float64
	VideosAnalyzed int
	Outperformers  []RankedVideo
}

// AnalyzeChannel ranks one channel's videos against its own average.
// Channels with no videos or no positive view counts produce an empty
// report.
func AnalyzeChannel(ch *scrapingdog.Channel, s Settings, log *slog.Logger) ChannelReport {
	report := ChannelReport{
		ChannelName: ch.Name,
		Handle:      ch.Handle,
		Subscribers: ch.Subscribers,
	}

	if len(ch.Videos) == 0 {
		log.Warn("No videos found for channel", "channel", ch.Name)
		return report
	}

	valid := make([]scrapingdog.Video, 0, len(ch.Videos))
	var totalViews int64
	for _, v := range ch.Videos {
		if v.Views > 0 {
			valid = append(valid, v)
			totalViews += v.Views
		}
	}
	if len(valid) == 0 {
		log.Warn("No videos with valid view counts", "channel", ch.Name)
		return report
	}

	avg := float64(totalViews) / float64(len(valid))

	var outperformers []RankedVideo
	for _, v := range valid {
		var ratio float64
		if avg > 0 {
			ratio = float64(v.Views) / avg
		}
		if ratio < s.MinRatio {
			continue
		}

		rounded := math.Round(ratio*100) / 100
		if rounded <= 1.0 {
			// At or on the average once rounded does not count.
			continue
		}

		outperformers = append(outperformers, RankedVideo{
			Video:  v,
			Ratio:  rounded,
			Recent: v.AgeDays != scrapingdog.AgeUnknown && v.AgeDays <= s.RecentDays,
		})
	}

	sort.SliceStable(outperformers, func(i, j int) bool {
		return outperformers[i].Ratio > outperformers[j].Ratio
	})

	report.AvgViews = math.Round(avg)
	report.VideosAnalyzed = len(valid)
	report.Outperformers = outperformers

	log.Info("Channel analyzed",
		"channel", ch.Name,
		"avg_views", report.AvgViews,
		"outperforming", len(outperformers),
		"analyzed", len(valid))
	return report
}

// AnalyzeAll analyzes every fetched channel, drops channels without
// outperformers, and orders the rest by how many videos they landed.
func AnalyzeAll(channels []*scrapingdog.Channel, s Settings, log *slog.Logger) []ChannelReport {
	results := make([]ChannelReport, 0, len(channels))
	total := 0

	for _, ch := range channels {
		report := AnalyzeChannel(ch, s, log)
		if len(report.Outperformers) > 0 {
			results = append(results, report)
			total += len(report.Outperformers)
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return len(results[i].Outperformers) > len(results[j].Outperformers)
	})

	log.Info("Analysis complete", "outperforming_videos", total, "channels", len(results))
	return results
}

// TotalOutperformers counts flagged videos across all channel reports.
func TotalOutperformers(reports []ChannelReport) int {
	total := 0
	for _, r := range reports {
		total += len(r.Outperformers)
	}
	return total
}
