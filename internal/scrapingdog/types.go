package scrapingdog

// AgeUnknown marks a video whose published time could not be parsed.
const AgeUnknown = -1

// Channel is the cleaned result of one ScrapingDog channel lookup.
type Channel struct {
	Name        string
	Handle      string
	Subscribers int64
	TotalVideos int64
	Videos      []Video
}

// Video is a single upload with its parsed view count and approximate age.
type Video struct {
	ID            string
	Title         string
	Link          string
	Views         int64
	PublishedTime string
	AgeDays       int
	Thumbnail     string
	Length        string
}

// channelResponse mirrors the relevant parts of the ScrapingDog YouTube
// Channel API payload. Count fields arrive as numbers or strings depending
// on the channel, so they decode as any and go through parseCount.
type channelResponse struct {
	Channel struct {
		Title string `json:"title"`
	} `json:"channel"`
	About struct {
		Subscribers any `json:"subscribers"`
		Videos      any `json:"videos"`
	} `json:"about"`
	VideosSections []struct {
		Videos []videoItem `json:"videos"`
	} `json:"videos_sections"`
}

type videoItem struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Link          string `json:"link"`
	Views         any    `json:"views"`
	PublishedTime string `json:"published_time"`
	Thumbnail     string `json:"thumbnail"`
	Length        string `json:"length"`
}
