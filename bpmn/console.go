package bpmn

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mohitkumar/orchy-console/command"
	"github.com/mohitkumar/orchy-console/hierarchy"
	"github.com/mohitkumar/orchy-console/logger"
	"github.com/mohitkumar/orchy-console/model"
	"github.com/mohitkumar/orchy-console/poller"
	"github.com/mohitkumar/orchy-console/script"
	"github.com/mohitkumar/orchy-console/status"
	"go.uber.org/zap"
)

const DEFAULT_SCHEMA_TYPE = "SchemaNode"
const DEFAULT_PROCESS_BASE_CLASS = "org.structr.bpmn.model.BPMNProcess"
const DEFAULT_INACTIVE_MARKER = "org.structr.bpmn.model.BPMNInactive"
const MAX_PAGE_SIZE = 1000

const EXTENDS_CLASS_KEY = "extendsClass"
const IMPLEMENTS_INTERFACES_KEY = "implementsInterfaces"
const CATEGORY_KEY = "category"
const IS_SUSPENDED_KEY = "isSuspended"

type Options struct {
	PollInterval     time.Duration
	SchemaType       string
	ProcessBaseClass string
	InactiveMarker   string
	Adapter          *status.Adapter
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = poller.DEFAULT_INTERVAL
	}
	if o.SchemaType == "" {
		o.SchemaType = DEFAULT_SCHEMA_TYPE
	}
	if o.ProcessBaseClass == "" {
		o.ProcessBaseClass = DEFAULT_PROCESS_BASE_CLASS
	}
	if o.InactiveMarker == "" {
		o.InactiveMarker = DEFAULT_INACTIVE_MARKER
	}
	if o.Adapter == nil {
		o.Adapter = status.Default()
	}
	return o
}

type TreeData struct {
	Type string `json:"type"`
	Id   string `json:"id,omitempty"`
}

type TreeNode struct {
	Id       string   `json:"id"`
	Text     string   `json:"text"`
	Children bool     `json:"children"`
	Level    int      `json:"level,omitempty"`
	Data     TreeData `json:"data"`
}

type StepView struct {
	model.Step
	Level         int               `json:"level,omitempty"`
	Action        string            `json:"action"`
	CanBeExecuted string            `json:"canBeExecuted"`
	ScriptErrors  map[string]string `json:"scriptErrors,omitempty"`
}

type ProcessDetails struct {
	Process model.Entity `json:"process"`
	Active  bool         `json:"active"`
}

// Console is one instance of the process management view. It owns the polls
// and the running process rows, and releases them on Dispose.
type Console struct {
	svc    command.Service
	opts   Options
	polls  *poller.Registry
	rows   *Rows
	seq    atomic.Uint64
	fields []string
}

func New(svc command.Service, opts Options) *Console {
	opts = opts.withDefaults()
	return &Console{
		svc:    svc,
		opts:   opts,
		polls:  poller.NewRegistry(),
		rows:   NewRows(),
		fields: opts.Adapter.Fields(),
	}
}

func (c *Console) Rows() *Rows {
	return c.rows
}

func (c *Console) Watching(id string) bool {
	return c.polls.Active(id)
}

func (c *Console) processQuery(properties map[string]any) command.Query {
	props := map[string]any{EXTENDS_CLASS_KEY: c.opts.ProcessBaseClass}
	for k, v := range properties {
		props[k] = v
	}
	return command.Query{
		Type:       c.opts.SchemaType,
		PageSize:   MAX_PAGE_SIZE,
		Page:       1,
		Sort:       "name",
		Order:      command.ORDER_ASC,
		Properties: props,
		Exact:      true,
	}
}

// ProcessTree lists process definitions as tree folders, either the active or the inactive ones.
func (c *Console) ProcessTree(ctx context.Context, active bool) ([]TreeNode, error) {
	marker := ""
	if !active {
		marker = c.opts.InactiveMarker
	}
	result, err := c.svc.Query(ctx, c.processQuery(map[string]any{IMPLEMENTS_INTERFACES_KEY: marker}))
	if err != nil {
		return nil, err
	}
	nodes := make([]TreeNode, 0, len(result))
	for _, p := range result {
		text := p.String(CATEGORY_KEY)
		if text == "" {
			text = p.String("name")
		}
		nodes = append(nodes, TreeNode{
			Id:       text,
			Text:     text,
			Children: true,
			Data:     TreeData{Type: "process", Id: p.ID()},
		})
	}
	return nodes, nil
}

func (c *Console) AvailableProcesses(ctx context.Context) ([]model.Entity, error) {
	return c.svc.Query(ctx, c.processQuery(nil))
}

func (c *Console) steps(ctx context.Context, category string) ([]hierarchy.Leveled, error) {
	result, err := c.svc.Query(ctx, command.Query{
		Type:       c.opts.SchemaType,
		PageSize:   MAX_PAGE_SIZE,
		Page:       1,
		Sort:       "description",
		Order:      command.ORDER_ASC,
		Properties: map[string]any{CATEGORY_KEY: category},
		Exact:      true,
		View:       "ui",
	})
	if err != nil {
		return nil, err
	}
	steps := make([]model.Step, 0, len(result))
	for _, e := range result {
		s, err := model.StepFromEntity(e)
		if err != nil {
			return nil, fmt.Errorf("error decoding step %s: %w", e.ID(), err)
		}
		steps = append(steps, s)
	}
	return hierarchy.SortByDepth(steps), nil
}

// StepTree lists the steps of a category ordered by depth, labelled "<level>. <description>".
func (c *Console) StepTree(ctx context.Context, category string) ([]TreeNode, error) {
	steps, err := c.steps(ctx, category)
	if err != nil {
		return nil, err
	}
	nodes := make([]TreeNode, 0, len(steps))
	for _, s := range steps {
		nodes = append(nodes, TreeNode{
			Id:    s.Id,
			Text:  fmt.Sprintf("%d. %s", s.Level, s.Label()),
			Level: s.Level,
			Data:  TreeData{Type: "step"},
		})
	}
	return nodes, nil
}

func stepView(s model.Step, level int) StepView {
	v := StepView{
		Step:          s,
		Level:         level,
		Action:        s.Action(),
		CanBeExecuted: s.CanBeExecuted(),
	}
	errs := script.CheckAll(map[string]string{
		model.ACTION_METHOD:          v.Action,
		model.CAN_BE_EXECUTED_METHOD: v.CanBeExecuted,
	})
	if len(errs) > 0 {
		v.ScriptErrors = errs
	}
	return v
}

func (c *Console) ProcessSteps(ctx context.Context, category string) ([]StepView, error) {
	steps, err := c.steps(ctx, category)
	if err != nil {
		return nil, err
	}
	views := make([]StepView, 0, len(steps))
	for _, s := range steps {
		views = append(views, stepView(s.Step, s.Level))
	}
	return views, nil
}

func (c *Console) StepDetails(ctx context.Context, id string) (*StepView, error) {
	e, err := c.svc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s, err := model.StepFromEntity(e)
	if err != nil {
		return nil, err
	}
	v := stepView(s, 0)
	return &v, nil
}

func (c *Console) ProcessDetails(ctx context.Context, id string) (*ProcessDetails, error) {
	e, err := c.svc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ProcessDetails{
		Process: e,
		Active:  e.String(IMPLEMENTS_INTERFACES_KEY) != c.opts.InactiveMarker,
	}, nil
}

func (c *Console) EnableProcess(ctx context.Context, id string) error {
	return c.svc.SetProperties(ctx, id, map[string]any{IMPLEMENTS_INTERFACES_KEY: nil})
}

func (c *Console) DisableProcess(ctx context.Context, id string) error {
	return c.svc.SetProperties(ctx, id, map[string]any{IMPLEMENTS_INTERFACES_KEY: c.opts.InactiveMarker})
}

func (c *Console) DeleteProcess(ctx context.Context, id string) error {
	return c.svc.DeleteNode(ctx, id)
}

func (c *Console) row(e model.Entity, seq uint64) Row {
	st := c.opts.Adapter.Status(e)
	return Row{
		Id:                 e.ID(),
		Type:               e.Type(),
		Status:             st,
		AwaitingUserAction: st.AwaitingUserAction(),
		Seq:                seq,
		UpdatedAt:          time.Now(),
	}
}

// RunningProcesses rebuilds the row table from the instances of every process
// definition, newest first. Rows still being watched are kept even when the listing
// misses them. The listing takes its sequence number before querying, so a poll that
// fetched later always wins over it.
func (c *Console) RunningProcesses(ctx context.Context) ([]Row, error) {
	seq := c.seq.Add(1)
	defs, err := c.AvailableProcesses(ctx)
	if err != nil {
		return nil, err
	}
	var instances []model.Entity
	for _, def := range defs {
		name := def.String("name")
		if name == "" {
			continue
		}
		result, err := c.svc.Query(ctx, command.Query{
			Type:     name,
			PageSize: MAX_PAGE_SIZE,
			Page:     1,
			Sort:     "createdDate",
			Order:    command.ORDER_DESC,
			Exact:    true,
			View:     "public",
		})
		if err != nil {
			return nil, err
		}
		instances = append(instances, result...)
	}
	command.Sort(instances, "createdDate", command.ORDER_DESC)
	listed := make([]Row, 0, len(instances))
	for _, e := range instances {
		listed = append(listed, c.row(e, seq))
	}
	return c.rows.Reset(listed, c.polls.Active), nil
}

// StartProcess creates an instance of the given process type and starts watching it.
func (c *Console) StartProcess(ctx context.Context, processType string) (*Row, error) {
	if processType == "" {
		return nil, command.ValidationError{Message: "process type is required"}
	}
	e, err := c.svc.Create(ctx, map[string]any{model.TYPE_KEY: processType})
	if err != nil {
		return nil, err
	}
	row := Row{Id: e.ID(), Type: processType, UpdatedAt: time.Now()}
	c.rows.Prepend(row)
	if err := c.EnableContinuousUpdate(e.ID()); err != nil {
		return nil, err
	}
	return &row, nil
}

func (c *Console) EnableContinuousUpdate(id string) error {
	if id == "" {
		return command.ValidationError{Message: "id is required"}
	}
	return c.polls.Register(id, c.UpdateRow, c.opts.PollInterval)
}

func (c *Console) DisableContinuousUpdate(id string) {
	c.polls.Cancel(id)
}

// UpdateRow fetches the status projection of a process and replaces its row.
// Polling stops once the process is finished or no longer exists.
func (c *Console) UpdateRow(ctx context.Context, id string) error {
	seq := c.seq.Add(1)
	e, err := c.svc.Get(ctx, id, c.fields...)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		var nf command.NotFoundError
		if errors.As(err, &nf) {
			logger.Info("process instance is gone, stopping updates", zap.String("id", id))
			c.polls.Cancel(id)
			c.rows.Remove(id)
			return nil
		}
		return err
	}
	if ctx.Err() != nil {
		return nil
	}
	row := c.row(e, seq)
	c.rows.Apply(row)
	if row.Status.Terminal() {
		logger.Debug("process finished, stopping updates", zap.String("id", id))
		c.polls.Cancel(id)
	}
	return nil
}

// Continue resumes a process that waits for user action on its current step.
func (c *Console) Continue(ctx context.Context, processId string) error {
	e, err := c.svc.Get(ctx, processId, c.fields...)
	if err != nil {
		return err
	}
	st := c.opts.Adapter.Status(e)
	if !st.AwaitingUserAction() {
		return command.ValidationError{Message: fmt.Sprintf("process %s is not waiting for user action", processId)}
	}
	if err := c.svc.SetProperty(ctx, st.StepId(), IS_SUSPENDED_KEY, false); err != nil {
		return err
	}
	return c.EnableContinuousUpdate(processId)
}

func (c *Console) StopAll() {
	c.polls.CancelAll()
}

// Dispose stops all polling and clears the view. The console can not be used afterwards.
func (c *Console) Dispose() {
	c.polls.Close()
	c.rows.Clear()
}
