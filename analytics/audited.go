package analytics

import (
	"context"
	"time"

	"github.com/mohitkumar/orchy-console/command"
	"github.com/mohitkumar/orchy-console/model"
)

var _ command.Service = new(auditedService)

type auditedService struct {
	command.Service
	collector CommandCollector
	now       func() time.Time
}

// Audited records every mutating command sent through svc. Reads pass straight through.
func Audited(svc command.Service, collector CommandCollector) command.Service {
	return &auditedService{
		Service:   svc,
		collector: collector,
		now:       time.Now,
	}
}

func (a *auditedService) record(cmd string, id string, detail map[string]any, err error) {
	rec := Record{
		Time:     a.now(),
		Command:  cmd,
		EntityId: id,
		Detail:   detail,
		Success:  err == nil,
	}
	if err != nil {
		rec.Error = err.Error()
	}
	a.collector.Record(rec)
}

func (a *auditedService) Create(ctx context.Context, attrs map[string]any) (model.Entity, error) {
	e, err := a.Service.Create(ctx, attrs)
	id := ""
	if e != nil {
		id = e.ID()
	}
	a.record("create", id, attrs, err)
	return e, err
}

func (a *auditedService) SetProperty(ctx context.Context, id string, key string, value any) error {
	err := a.Service.SetProperty(ctx, id, key, value)
	a.record("setProperty", id, map[string]any{key: value}, err)
	return err
}

func (a *auditedService) SetProperties(ctx context.Context, id string, attrs map[string]any) error {
	err := a.Service.SetProperties(ctx, id, attrs)
	a.record("setProperties", id, attrs, err)
	return err
}

func (a *auditedService) DeleteNode(ctx context.Context, id string) error {
	err := a.Service.DeleteNode(ctx, id)
	a.record("deleteNode", id, nil, err)
	return err
}
