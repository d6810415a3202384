package formctl

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"github.com/goliatone/go-formctl/pkg/dom"
	"github.com/goliatone/go-formctl/pkg/i18n"
	"github.com/goliatone/go-formctl/pkg/markup"
	"github.com/goliatone/go-formctl/pkg/upload"
)

func (c *Controller) bindUploads() {
	for _, up := range c.cfg.Uploads {
		up := up
		c.doc.Bind(dom.Binding{
			ID:   up.InputID,
			Kind: dom.EventChange,
			Handler: func(context.Context, *dom.Event) {
				c.mu.Lock()
				defer c.mu.Unlock()
				c.screenFile(up)
			},
		})
		c.doc.Bind(dom.Binding{
			ID:   up.RemoveID(),
			Kind: dom.EventClick,
			Handler: func(_ context.Context, ev *dom.Event) {
				ev.PreventDefault()
				c.mu.Lock()
				defer c.mu.Unlock()
				c.removeFile(up)
			},
		})
	}
}

// screenFile validates the first picked file of an upload input and renders
// either its preview or the rejection message.
func (c *Controller) screenFile(up Upload) {
	input := c.doc.ElementByID(up.InputID)
	preview := c.doc.ElementByID(up.PreviewID)
	if input == nil || preview == nil {
		c.logger.Warn("upload elements missing from document", "input", up.InputID, "preview", up.PreviewID)
		return
	}
	c.setHTML(preview, "")

	files := input.Files()
	if len(files) == 0 {
		return
	}
	picked := files[0]
	rules := up.Rules()

	if err := rules.Validate(upload.NewFile(picked.Name, picked.Size)); err != nil {
		input.SetFiles(nil)
		message := c.rejectionMessage(err, rules)
		c.logger.Info("file rejected", "input", up.InputID, "file", picked.Name, "size", picked.Size, "error", err)

		var reject *upload.RejectError
		if errors.As(err, &reject) {
			c.metrics.rejection(c.cfg.FormID, string(reject.Reason))
		}
		fragment, renderErr := c.markup.PreviewError(message)
		if renderErr != nil {
			c.logger.Error("render preview error", "error", renderErr)
			return
		}
		c.setHTML(preview, fragment)
		return
	}

	ext := upload.Ext(picked.Name)
	fragment, err := c.markup.Preview(markup.Preview{
		Name:        picked.Name,
		Size:        upload.FormatMB(picked.Size),
		Image:       upload.IsImage(ext),
		Source:      thumbnailSource(picked, ext, rules.MaxBytes),
		RemoveID:    up.RemoveID(),
		RemoveLabel: c.msg(i18n.MsgRemoveFile, nil),
	})
	if err != nil {
		c.logger.Error("render preview", "error", err)
		return
	}
	c.setHTML(preview, fragment)
}

func (c *Controller) removeFile(up Upload) {
	if input := c.doc.ElementByID(up.InputID); input != nil {
		input.SetFiles(nil)
	}
	if preview := c.doc.ElementByID(up.PreviewID); preview != nil {
		c.setHTML(preview, "")
	}
}

func (c *Controller) clearPreviews() {
	for _, up := range c.cfg.Uploads {
		if preview := c.doc.ElementByID(up.PreviewID); preview != nil {
			c.setHTML(preview, "")
		}
	}
}

func (c *Controller) rejectionMessage(err error, rules upload.Rules) string {
	switch {
	case errors.Is(err, upload.ErrTooLarge):
		return c.msg(i18n.MsgFileTooLarge, map[string]any{"Max": upload.FormatMB(rules.MaxBytes)})
	case errors.Is(err, upload.ErrExtensionNotAllowed):
		return c.msg(i18n.MsgFileTypeNotAllowed, map[string]any{"Allowed": strings.Join(rules.Allowed, ", ")})
	default:
		return err.Error()
	}
}

func (c *Controller) setHTML(el dom.Element, fragment string) {
	if err := el.SetInnerHTML(fragment); err != nil {
		c.logger.Error("update element markup", "id", el.ID(), "error", err)
	}
}

// thumbnailSource inlines an image as a data URL. Files that cannot be read
// get an empty source and keep their filename caption.
func thumbnailSource(file dom.File, ext string, limit int64) string {
	if !upload.IsImage(ext) || file.Open == nil {
		return ""
	}
	rc, err := file.Open()
	if err != nil {
		return ""
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil || int64(len(data)) > limit {
		return ""
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = "image/" + strings.Replace(ext, "jpg", "jpeg", 1)
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
