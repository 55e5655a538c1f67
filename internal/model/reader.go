package model

import "time"

// FileKindAvatar marks a person's registered face photo.
const FileKindAvatar = "AVATAR"

type Person struct {
	ID     int64  `json:"id"`
	Name   string `json:"nome"`
	Active bool   `json:"ativo"`
}

// File is an image reference. PathCloud, when set, already holds the
// base64 payload and takes precedence over PathLocal.
type File struct {
	ID        int64     `json:"id"`
	PersonID  int64     `json:"pessoa_id"`
	Kind      string    `json:"tipo_arquivo"`
	PathLocal string    `json:"path_local,omitempty"`
	PathCloud string    `json:"-"`
	CreatedAt time.Time `json:"data_cadastro"`
}

type Reader struct {
	ID         int64  `json:"id"`
	EventID    int64  `json:"evento_id"`
	Name       string `json:"nome"`
	IP         string `json:"ip"`
	Active     bool   `json:"ativo"`
	Configured bool   `json:"configurado"`
}
