package scrapingdog

import (
	"strconv"
	"strings"
)

// parseCount converts the mixed count representations the API returns
// ("876,754,415 views", "3M", "1.2K", 33, "33") into an integer.
// Unparsable values become 0.
func parseCount(raw any) int64 {
	switch v := raw.(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case string:
		return parseCountString(v)
	default:
		return 0
	}
}

func parseCountString(s string) int64 {
	cleaned := strings.ToLower(s)
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, "views", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0
	}

	multipliers := map[byte]float64{'k': 1e3, 'm': 1e6, 'b': 1e9}
	if mult, ok := multipliers[cleaned[len(cleaned)-1]]; ok {
		number, err := strconv.ParseFloat(cleaned[:len(cleaned)-1], 64)
		if err != nil {
			return 0
		}
		return int64(number * mult)
	}

	number, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return int64(number)
}

// parseRelativeAge converts strings like "3 months ago" or "2 weeks ago"
// into approximate days. Anything under a day collapses to 0. Returns
// AgeUnknown when the string does not follow the "<number> <unit> ago"
// shape.
func parseRelativeAge(s string) int {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	if len(parts) < 3 {
		return AgeUnknown
	}

	number, err := strconv.Atoi(parts[0])
	if err != nil {
		return AgeUnknown
	}

	unit := parts[1]
	switch {
	case strings.Contains(unit, "hour"):
		return 0
	case strings.Contains(unit, "day"):
		return number
	case strings.Contains(unit, "week"):
		return number * 7
	case strings.Contains(unit, "month"):
		return number * 30
	case strings.Contains(unit, "year"):
		return number * 365
	}
	return AgeUnknown
}

// parseChannelResponse flattens the raw API payload into a Channel,
// de-duplicating videos that appear in more than one section.
func parseChannelResponse(data *channelResponse, handle string) *Channel {
	name := data.Channel.Title
	if name == "" {
		name = handle
	}

	ch := &Channel{
		Name:        name,
		Handle:      handle,
		Subscribers: parseCount(data.About.Subscribers),
		TotalVideos: parseCount(data.About.Videos),
	}

	seen := make(map[string]struct{})
	for _, section := range data.VideosSections {
		for _, item := range section.Videos {
			if item.ID == "" {
				continue
			}
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}

			title := item.Title
			if title == "" {
				title = "Untitled"
			}
			link := item.Link
			if link == "" {
				link = "https://www.youtube.com/watch?v=" + item.ID
			}

			ch.Videos = append(ch.Videos, Video{
				ID:            item.ID,
				Title:         title,
				Link:          link,
				Views:         parseCount(item.Views),
				PublishedTime: item.PublishedTime,
				AgeDays:       parseRelativeAge(item.PublishedTime),
				Thumbnail:     item.Thumbnail,
				Length:        item.Length,
			})
		}
	}

	return ch
}
