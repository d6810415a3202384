package formctl

import (
	"context"
	"fmt"

	"github.com/goliatone/go-formctl/pkg/dom"
	"github.com/goliatone/go-formctl/pkg/i18n"
	"github.com/goliatone/go-formctl/pkg/markup"
)

type bannerState struct {
	id     string
	timers []Timer
}

func (b *bannerState) stop() {
	for _, t := range b.timers {
		if t != nil {
			t.Stop()
		}
	}
	b.timers = nil
}

// showBanner replaces the current banner. The message is sanitised markup.
// Callers hold c.mu.
func (c *Controller) showBanner(level markup.Level, message string) {
	container := c.doc.ElementByID(c.cfg.AlertContainerID)
	if container == nil {
		return
	}
	if c.banner != nil {
		c.banner.stop()
	}

	c.bannerSeq++
	id := fmt.Sprintf("%s-banner-%d", c.cfg.AlertContainerID, c.bannerSeq)
	fragment, err := c.markup.Banner(markup.Banner{
		ID:         id,
		Level:      level,
		Message:    message,
		CloseLabel: c.msg(i18n.MsgClose, nil),
	})
	if err != nil {
		c.logger.Error("render banner", "error", err)
		return
	}
	c.setHTML(container, fragment)

	state := &bannerState{id: id}
	c.banner = state
	state.timers = append(state.timers, c.scheduler.AfterFunc(c.cfg.BannerTimeout, func() {
		c.fadeBanner(id)
	}))
}

func (c *Controller) fadeBanner(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.banner == nil || c.banner.id != id {
		return
	}
	if el := c.doc.ElementByID(id); el != nil {
		el.RemoveClass("show")
	}
	c.banner.timers = append(c.banner.timers, c.scheduler.AfterFunc(c.cfg.BannerFade, func() {
		c.removeBanner(id)
	}))
}

func (c *Controller) removeBanner(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.banner == nil || c.banner.id != id {
		return
	}
	c.dropBanner()
}

// dropBanner removes the current banner and cancels its timers. Callers hold
// c.mu.
func (c *Controller) dropBanner() {
	if c.banner == nil {
		return
	}
	c.banner.stop()
	if el := c.doc.ElementByID(c.banner.id); el != nil {
		el.Remove()
	}
	c.banner = nil
}

// clearBanner empties the alert container. Callers hold c.mu.
func (c *Controller) clearBanner() {
	c.dropBanner()
	if container := c.doc.ElementByID(c.cfg.AlertContainerID); container != nil {
		c.setHTML(container, "")
	}
}

func (c *Controller) onBannerClick(_ context.Context, ev *dom.Event) {
	if ev.Target == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.banner == nil || ev.Target.ID() != c.banner.id+"-close" {
		return
	}
	c.dropBanner()
}

// BannerID reports the id of the banner currently shown, if any.
func (c *Controller) BannerID() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.banner == nil {
		return "", false
	}
	return c.banner.id, true
}
