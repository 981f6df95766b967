package command

import (
	"context"
	"fmt"

	"github.com/mohitkumar/orchy-console/model"
)

type Order string

const ORDER_ASC Order = "asc"
const ORDER_DESC Order = "desc"

// Query is a paged, filtered and sorted listing request.
type Query struct {
	Type       string
	PageSize   int
	Page       int
	Sort       string
	Order      Order
	Properties map[string]any
	Exact      bool
	View       string
}

// Service is the backend command/query surface the console views talk to.
type Service interface {
	Get(ctx context.Context, id string, fields ...string) (model.Entity, error)
	Query(ctx context.Context, q Query) ([]model.Entity, error)
	Create(ctx context.Context, attrs map[string]any) (model.Entity, error)
	SetProperty(ctx context.Context, id string, key string, value any) error
	SetProperties(ctx context.Context, id string, attrs map[string]any) error
	DeleteNode(ctx context.Context, id string) error
}

type NotFoundError struct {
	Id string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("entity %s not found", e.Id)
}

type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s", e.Message)
}
