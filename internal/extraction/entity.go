// SPDX-License-Identifier: Apache-2.0

package extraction

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Entity is one typed, valued span of a message text. Start and End are
// character offsets, End exclusive.
type Entity struct {
	Type       string   `json:"entity"`
	Start      int      `json:"start"`
	End        int      `json:"end"`
	Value      any      `json:"value"`
	Confidence float64  `json:"confidence_entity"`
	Extractor  string   `json:"extractor,omitempty"`
	Processors []string `json:"processors,omitempty"`
}

// Item is one element of a message's entity list. Until a pipeline has
// normalized the list an element may be a bare label instead of an Entity.
type Item struct {
	Entity *Entity
	Label  string
}

// EntityItem wraps e as a list element.
func EntityItem(e Entity) Item {
	return Item{Entity: &e}
}

// BareItem returns an element that only carries a label.
func BareItem(label string) Item {
	return Item{Label: label}
}

// IsBare reports whether the element has no structured entity.
func (i Item) IsBare() bool {
	return i.Entity == nil
}

func (i Item) MarshalJSON() ([]byte, error) {
	if i.IsBare() {
		return json.Marshal(i.Label)
	}
	return json.Marshal(i.Entity)
}

func (i *Item) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		*i = Item{}
		return json.Unmarshal(data, &i.Label)
	}
	var e Entity
	if err := json.Unmarshal(data, &e); err != nil {
		return fmt.Errorf("entity list element: %w", err)
	}
	*i = Item{Entity: &e}
	return nil
}

// Entities returns the structured entities of items, skipping bare ones.
func Entities(items []Item) []Entity {
	out := make([]Entity, 0, len(items))
	for _, it := range items {
		if !it.IsBare() {
			out = append(out, *it.Entity)
		}
	}
	return out
}

// Intent is a classified intent with its confidence.
type Intent struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Message is the per-utterance state passed between pipeline components.
type Message struct {
	Text          string   `json:"text"`
	Intent        *Intent  `json:"intent,omitempty"`
	IntentRanking []Intent `json:"intent_ranking,omitempty"`
	Entities      []Item   `json:"entities"`
}
