// Package discipline 学科管理，学科序号决定内容标签的根编码前缀
package discipline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ashwinyue/questbank/internal/model"
	"github.com/ashwinyue/questbank/internal/repository"
	"github.com/ashwinyue/questbank/internal/service/taxonomy"
)

// Service 学科服务
type Service struct {
	repo   *repository.Repositories
	logger *zap.Logger
}

// NewService 创建学科服务
func NewService(repo *repository.Repositories, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// CreateRequest 创建学科请求
type CreateRequest struct {
	Code        string `json:"code" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Rank        int    `json:"rank" binding:"required,min=1"`
}

// Defaults 默认学科
var Defaults = []CreateRequest{
	{Code: "MAT", Name: "Matematica", Description: "Matematica e Raciocinio Logico", Color: "#3498db", Rank: 1},
	{Code: "FIS", Name: "Fisica", Description: "Fisica Geral e Aplicada", Color: "#e74c3c", Rank: 2},
	{Code: "QUI", Name: "Quimica", Description: "Quimica Geral, Organica e Inorganica", Color: "#9b59b6", Rank: 3},
	{Code: "BIO", Name: "Biologia", Description: "Biologia Geral, Ecologia e Genetica", Color: "#27ae60", Rank: 4},
	{Code: "POR", Name: "Portugues", Description: "Lingua Portuguesa e Literatura", Color: "#f39c12", Rank: 5},
	{Code: "RED", Name: "Redacao", Description: "Producao Textual", Color: "#e67e22", Rank: 6},
	{Code: "HIS", Name: "Historia", Description: "Historia Geral e do Brasil", Color: "#1abc9c", Rank: 7},
	{Code: "GEO", Name: "Geografia", Description: "Geografia Geral e do Brasil", Color: "#16a085", Rank: 8},
	{Code: "FIL", Name: "Filosofia", Description: "Filosofia Geral", Color: "#8e44ad", Rank: 9},
	{Code: "SOC", Name: "Sociologia", Description: "Sociologia Geral", Color: "#2c3e50", Rank: 10},
	{Code: "ING", Name: "Ingles", Description: "Lingua Inglesa", Color: "#c0392b", Rank: 11},
	{Code: "ESP", Name: "Espanhol", Description: "Lingua Espanhola", Color: "#d35400", Rank: 12},
}

// List 列出学科
func (s *Service) List(ctx context.Context, activeOnly bool) ([]*model.Discipline, error) {
	items, err := s.repo.Discipline.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list disciplines: %w", err)
	}
	return items, nil
}

// Get 按 ID 获取学科
func (s *Service) Get(ctx context.Context, id string) (*model.Discipline, error) {
	d, err := s.repo.Discipline.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get discipline: %w", err)
	}
	if d == nil {
		return nil, fmt.Errorf("%w: discipline %s", taxonomy.ErrNotFound, id)
	}
	return d, nil
}

// GetByCode 按编码获取学科
func (s *Service) GetByCode(ctx context.Context, code string) (*model.Discipline, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	d, err := s.repo.Discipline.GetByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get discipline: %w", err)
	}
	if d == nil {
		return nil, fmt.Errorf("%w: discipline %s", taxonomy.ErrNotFound, code)
	}
	return d, nil
}

// Create 创建学科，编码转为大写
func (s *Service) Create(ctx context.Context, req *CreateRequest) (*model.Discipline, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	name := strings.TrimSpace(req.Name)
	if code == "" || name == "" {
		return nil, fmt.Errorf("%w: code and name are required", taxonomy.ErrValidation)
	}
	if req.Rank < 1 {
		return nil, fmt.Errorf("%w: rank must be positive", taxonomy.ErrValidation)
	}

	taken, err := s.repo.Discipline.GetByRank(ctx, req.Rank)
	if err != nil {
		return nil, fmt.Errorf("failed to check rank: %w", err)
	}
	if taken != nil {
		return nil, fmt.Errorf("%w: rank %d already used by %s", taxonomy.ErrConflict, req.Rank, taken.Code)
	}

	d := &model.Discipline{
		Code:        code,
		Name:        name,
		Description: req.Description,
		Color:       req.Color,
		Rank:        req.Rank,
		Active:      true,
	}
	if err := s.repo.Discipline.Create(ctx, d); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: discipline %s or rank %d already exists", taxonomy.ErrConflict, code, req.Rank)
		}
		return nil, fmt.Errorf("failed to create discipline: %w", err)
	}

	s.logger.Info("discipline created", zap.String("code", d.Code), zap.Int("rank", d.Rank))
	return d, nil
}

// SeedDefaults 写入缺失的默认学科，返回新建数量
func (s *Service) SeedDefaults(ctx context.Context) (int, error) {
	created := 0
	err := s.repo.Transaction(ctx, func(tx *repository.Repositories) error {
		for _, def := range Defaults {
			existing, err := tx.Discipline.GetByCode(ctx, def.Code)
			if err != nil {
				return fmt.Errorf("failed to check discipline %s: %w", def.Code, err)
			}
			if existing != nil {
				continue
			}
			// 序号已被自定义学科占用时跳过
			taken, err := tx.Discipline.GetByRank(ctx, def.Rank)
			if err != nil {
				return fmt.Errorf("failed to check rank %d: %w", def.Rank, err)
			}
			if taken != nil {
				s.logger.Warn("skipping default discipline, rank taken",
					zap.String("code", def.Code), zap.Int("rank", def.Rank), zap.String("taken_by", taken.Code))
				continue
			}

			d := &model.Discipline{
				Code:        def.Code,
				Name:        def.Name,
				Description: def.Description,
				Color:       def.Color,
				Rank:        def.Rank,
				Active:      true,
			}
			if err := tx.Discipline.Create(ctx, d); err != nil {
				return fmt.Errorf("failed to seed discipline %s: %w", def.Code, err)
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("default disciplines seeded", zap.Int("created", created))
	return created, nil
}
