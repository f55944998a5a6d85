package data

import (
	_ "embed"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/codegrade/backend/internal/domain"
)

//go:embed problems.json
var problemsData []byte

// taskJSON represents the JSON structure for embedded tasks
type taskJSON struct {
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	SampleTests      string         `json:"sample_tests"`
	ModelSolution    string         `json:"model_solution"`
	Criteria         map[string]int `json:"criteria"`
	Points           int            `json:"points"`
	TimeLimitMinutes int            `json:"time_limit_minutes"`
	Difficulty       string         `json:"difficulty"`
}

// problemJSON represents the JSON structure for embedded problems
type problemJSON struct {
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Description string     `json:"description"`
	Difficulty  string     `json:"difficulty"`
	Topics      []string   `json:"topics"`
	Tasks       []taskJSON `json:"tasks"`
}

// Seeder handles database seeding operations
type Seeder struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSeeder creates a new database seeder
func NewSeeder(db *gorm.DB, logger *zap.Logger) *Seeder {
	return &Seeder{
		db:     db,
		logger: logger,
	}
}

// SeedProblems seeds the problem catalog with the embedded sample exercises.
// Seeding is skipped when problems already exist.
func (s *Seeder) SeedProblems() error {
	s.logger.Info("Starting to seed problems...")

	var count int64
	if err := s.db.Model(&domain.Problem{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		s.logger.Info("Problems already seeded, skipping",
			zap.Int64("count", count),
		)
		return nil
	}

	var problemsJSON []problemJSON
	if err := json.Unmarshal(problemsData, &problemsJSON); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		taskCount := 0
		for _, p := range problemsJSON {
			problem := domain.Problem{
				ID:          uuid.New(),
				Title:       p.Title,
				Slug:        p.Slug,
				Description: p.Description,
				Difficulty:  domain.Difficulty(p.Difficulty),
				Topics:      p.Topics,
			}
			if err := tx.Create(&problem).Error; err != nil {
				return err
			}

			for i, t := range p.Tasks {
				task := domain.Task{
					ID:               uuid.New(),
					Title:            t.Title,
					Description:      t.Description,
					SampleTests:      t.SampleTests,
					ModelSolution:    t.ModelSolution,
					Criteria:         datatypes.NewJSONType(t.Criteria),
					Points:           t.Points,
					TimeLimitMinutes: t.TimeLimitMinutes,
					Difficulty:       domain.Difficulty(t.Difficulty),
				}
				if err := tx.Create(&task).Error; err != nil {
					return err
				}

				association := domain.ProblemTask{
					ProblemID: problem.ID,
					TaskID:    task.ID,
					Order:     i + 1,
				}
				if err := tx.Create(&association).Error; err != nil {
					return err
				}
				taskCount++
			}
		}

		s.logger.Info("Successfully seeded problems",
			zap.Int("problems", len(problemsJSON)),
			zap.Int("tasks", taskCount),
		)
		return nil
	})
}
