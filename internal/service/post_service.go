package service

import (
	"time"

	"github.com/qs3c/brevity_server/internal/model/dto"
	"github.com/qs3c/brevity_server/internal/repository"
)

type PostService struct {
	postRepo *repository.PostRepository
}

func NewPostService(postRepo *repository.PostRepository) *PostService {
	return &PostService{postRepo: postRepo}
}

// ListPosts 用户已发布的文章，最新的在前
func (s *PostService) ListPosts(userID int64, page, pageSize int) ([]dto.PostItem, int64, error) {
	posts, total, err := s.postRepo.ListByUser(userID, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]dto.PostItem, 0, len(posts))
	for _, p := range posts {
		items = append(items, dto.PostItem{
			ID:        p.ID,
			Title:     p.Title,
			Topic:     p.Topic,
			Category:  p.Category,
			URL:       p.URL,
			CreatedAt: p.CreatedAt.Format(time.RFC3339),
		})
	}
	return items, total, nil
}
