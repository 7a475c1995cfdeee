package handler

import (
	"github.com/ashwinyue/questbank/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Tag        *TagHandler
	Discipline *DisciplineHandler
	Event      *EventHandler
	System     *SystemHandler
}

// NewHandlers 创建所有处理器
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Tag:        NewTagHandler(svc.Taxonomy, svc.Discipline, svc.Config.Taxonomy.PathSeparator),
		Discipline: NewDisciplineHandler(svc.Discipline),
		Event:      NewEventHandler(svc.Events),
		System:     NewSystemHandler(svc),
	}
}
