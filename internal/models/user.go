package models

import "time"

// User is a registered account. Username doubles as the realtime client id.
type User struct {
	ID           int       `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	DisplayName  string    `db:"display_name" json:"display_name"`
	AvatarURL    string    `db:"avatar_url" json:"avatar_url,omitempty"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// StoredMessage is the archived copy of a message kept in the relational store.
type StoredMessage struct {
	ID          string    `db:"id" json:"id"`
	ChannelName string    `db:"channel_name" json:"channel_name"`
	Author      string    `db:"author" json:"author"`
	Content     string    `db:"content" json:"content"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
