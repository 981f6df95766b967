package model

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Node struct {
	Id       string   `json:"id"`
	Label    string   `json:"label"`
	Position Position `json:"position"`
	Size     int      `json:"size"`
	Color    string   `json:"color"`
	NodeType string   `json:"nodeType"`
	Name     string   `json:"name,omitempty"`
	Hidden   bool     `json:"hidden"`
}

type Edge struct {
	Id      string `json:"id"`
	Label   string `json:"label"`
	Source  string `json:"source"`
	Target  string `json:"target"`
	Size    int    `json:"size"`
	Color   string `json:"color"`
	RelType string `json:"relType"`
	RelName string `json:"relName"`
	Hidden  bool   `json:"hidden"`
	Count   int    `json:"count"`
}
