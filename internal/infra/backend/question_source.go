package backend

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"

	"maipocket-quiz/internal/app"
	"maipocket-quiz/internal/domain"
)

const questionsURL = "/quiz/questions"

// QuestionSource fetches session questions from the backend, retrying transient failures.
type QuestionSource struct {
	client *Client
}

var _ app.QuestionSource = (*QuestionSource)(nil)

func NewQuestionSource(client *Client) *QuestionSource {
	return &QuestionSource{client: client}
}

type questionsResponse struct {
	Questions []domain.Question `json:"questions"`
}

// Fetch maps a 400 to domain.ErrNotEnoughContent and every other failure, once
// retries are exhausted, to domain.ErrContentUnavailable.
func (s *QuestionSource) Fetch(ctx context.Context, fr app.FetchRequest) ([]domain.Question, error) {
	filter := fr.Filter.Normalize()
	var out questionsResponse
	err := s.client.retry(ctx, "fetch questions", func() error {
		resp, err := s.client.request(ctx, domain.Player{}).
			SetQueryParam("questionMode", string(fr.Kind)).
			SetQueryParam("gameMode", string(fr.Mode)).
			SetQueryParam("category", string(filter.Category)).
			SetQueryParam("value", filter.Value).
			SetQueryParam("count", strconv.Itoa(fr.Count)).
			Get(questionsURL)
		if err != nil {
			return errors.Wrap(err, "call questions")
		}
		err = decode(resp, &out)
		var status *StatusError
		if errors.As(err, &status) && status.Code == http.StatusBadRequest {
			return backoff.Permanent(fmt.Errorf("%w: %s", domain.ErrNotEnoughContent, status.Body))
		}
		return retryable(err)
	})
	if errors.Is(err, domain.ErrNotEnoughContent) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrContentUnavailable, err)
	}
	return out.Questions, nil
}
