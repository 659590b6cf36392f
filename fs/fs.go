// Package appfs embeds the files shipped with the binaries: database migrations, email templates and assets.
package appfs

import "embed"

//go:embed assets/* migrations/*.sql templates/email/*
var FS embed.FS
