package models

import "time"

// ScriptEntry is one scripted bot message, revealed Offset after the anchor.
type ScriptEntry struct {
	Offset    time.Duration    `yaml:"offset" json:"offset"`
	Author    string           `yaml:"author" json:"author"`
	Text      string           `yaml:"text" json:"text"`
	Reactions []ScriptReaction `yaml:"reactions,omitempty" json:"reactions,omitempty"`
}

// ScriptReaction is a reaction a bot adds to its own entry when revealed.
type ScriptReaction struct {
	Type  string `yaml:"type" json:"type"`
	Actor string `yaml:"actor" json:"actor"`
}
