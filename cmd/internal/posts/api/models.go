package postsapi

import (
	"time"

	"upvote/cmd/posts"
)

type createPostRequest struct {
	Title string `json:"title"`
}

type postResponse struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Votes     int       `json:"votes"`
	CreatedAt time.Time `json:"created_at"`
}

type listPostsResponse struct {
	Posts []postResponse `json:"posts"`
}

type voteResponse struct {
	Count   int  `json:"count"`
	Upvoted bool `json:"upvoted"`
}

type deletePostResponse struct {
	Deleted bool  `json:"deleted"`
	ID      int64 `json:"id"`
}

func toPostResponse(p posts.Post) postResponse {
	return postResponse{
		ID:        p.ID,
		Title:     p.Title,
		Votes:     p.Votes,
		CreatedAt: p.CreatedAt,
	}
}
