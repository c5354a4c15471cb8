package postgres

import (
	"context"

	"github.com/SAP-F-2025/survey-match-service/internal/cache"
	"github.com/SAP-F-2025/survey-match-service/internal/repositories"
	"gorm.io/gorm"
)

type Repository struct {
	db       *gorm.DB
	survey   repositories.SurveyRepository
	question repositories.QuestionRepository
	session  repositories.SessionRepository
	answer   repositories.AnswerRepository
}

func NewRepository(db *gorm.DB, cacheManager *cache.CacheManager) repositories.Repository {
	return &Repository{
		db:       db,
		survey:   NewSurveyPostgreSQL(db),
		question: NewQuestionPostgreSQL(db, cacheManager),
		session:  NewSessionPostgreSQL(db),
		answer:   NewAnswerPostgreSQL(db),
	}
}

func (r *Repository) Survey() repositories.SurveyRepository     { return r.survey }
func (r *Repository) Question() repositories.QuestionRepository { return r.question }
func (r *Repository) Session() repositories.SessionRepository   { return r.session }
func (r *Repository) Answer() repositories.AnswerRepository     { return r.answer }

func (r *Repository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}
