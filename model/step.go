package model

import (
	"encoding/json"
)

const ACTION_METHOD = "action"
const CAN_BE_EXECUTED_METHOD = "canBeExecuted"

type Relation struct {
	SourceId string `json:"sourceId"`
}

type SchemaMethod struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

type SchemaProperty struct {
	Name         string `json:"name"`
	PropertyType string `json:"propertyType"`
}

// Step is one schema node of a process, linked to its predecessor through RelatedFrom.
type Step struct {
	Id               string           `json:"id"`
	Type             string           `json:"type,omitempty"`
	Name             string           `json:"name"`
	Description      string           `json:"description,omitempty"`
	Category         string           `json:"category,omitempty"`
	RelatedFrom      []Relation       `json:"relatedFrom,omitempty"`
	SchemaMethods    []SchemaMethod   `json:"schemaMethods,omitempty"`
	SchemaProperties []SchemaProperty `json:"schemaProperties,omitempty"`
}

func (s Step) ParentId() (string, bool) {
	if len(s.RelatedFrom) == 0 {
		return "", false
	}
	return s.RelatedFrom[0].SourceId, true
}

func (s Step) Label() string {
	if s.Description != "" {
		return s.Description
	}
	return s.Name
}

func (s Step) method(name string) string {
	for _, m := range s.SchemaMethods {
		if m.Name == name {
			return m.Source
		}
	}
	return ""
}

func (s Step) Action() string {
	return s.method(ACTION_METHOD)
}

func (s Step) CanBeExecuted() string {
	return s.method(CAN_BE_EXECUTED_METHOD)
}

// StepFromEntity decodes the step view of a schema node entity.
func StepFromEntity(e Entity) (Step, error) {
	var step Step
	data, err := json.Marshal(e)
	if err != nil {
		return step, err
	}
	if err := json.Unmarshal(data, &step); err != nil {
		return step, err
	}
	return step, nil
}
