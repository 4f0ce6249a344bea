// Package forum fetches topics and posts from a Discourse-compatible API.
package forum

import "time"

// TopicStub is one entry of the latest-topics listing.
type TopicStub struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// Post is one cooked post within a topic. Immutable once fetched.
type Post struct {
	ID        int64     `json:"id"`
	TopicID   int64     `json:"topic_id"`
	Username  string    `json:"username"`
	Cooked    string    `json:"cooked"`
	CreatedAt time.Time `json:"created_at"`
}

// Topic is the first page of a topic's post stream.
type Topic struct {
	ID    int64
	Title string
	Posts []Post
}

// Wire shapes for the Discourse JSON API.

type latestResponse struct {
	TopicList struct {
		Topics []TopicStub `json:"topics"`
	} `json:"topic_list"`
}

type topicResponse struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	PostStream struct {
		Posts []Post `json:"posts"`
	} `json:"post_stream"`
}
