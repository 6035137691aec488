package tools

import (
	"context"
	"fmt"

	"tooldeck/internal/domain"
)

const (
	NameBrowserNavigate   domain.ToolName = "browser_navigate"
	NameBrowserScreenshot domain.ToolName = "browser_screenshot"
	NameBrowserClick      domain.ToolName = "browser_click"
	NameBrowserType       domain.ToolName = "browser_type"
	NameBrowserGetContent domain.ToolName = "browser_get_content"
)

// BrowserTools drives the shared headless-browser session. None of these
// are cacheable: even reads reflect whatever the last navigation loaded.
func BrowserTools(session Browser, timeouts domain.TimeoutConfig) []domain.ToolDescriptor {
	meta := domain.ToolMeta{Category: domain.CategoryBrowser}
	timeout := timeouts.Browser

	return []domain.ToolDescriptor{
		{
			Name:        NameBrowserNavigate,
			Description: "Navigate the browser to a URL and wait for the page to load.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url": map[string]any{
						"type":        "string",
						"description": "Destination URL, including the scheme.",
					},
				},
				"required": []string{"url"},
			},
			Handler: func(ctx context.Context, args domain.Args) (domain.ToolOutput, error) {
				url := args.String("url")
				if err := session.Navigate(ctx, url); err != nil {
					return domain.ToolOutput{}, err
				}
				return domain.ToolOutput{
					Data:    map[string]any{"url": url},
					Message: fmt.Sprintf("navigated to %s", url),
				}, nil
			},
			Meta:    meta,
			Timeout: timeout,
		},
		{
			Name:        NameBrowserScreenshot,
			Description: "Capture the current page to an image file and return its location.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Where to write the image.",
						"default":     "screenshot.png",
					},
					"full_page": map[string]any{
						"type":        "boolean",
						"description": "Capture the full scroll height instead of the viewport.",
						"default":     false,
					},
				},
			},
			Handler: func(ctx context.Context, args domain.Args) (domain.ToolOutput, error) {
				written, err := session.Screenshot(ctx, args.String("path"), args.Bool("full_page"))
				if err != nil {
					return domain.ToolOutput{}, err
				}
				return domain.ToolOutput{
					Data:    map[string]any{"path": written},
					Message: fmt.Sprintf("screenshot saved to %s", written),
				}, nil
			},
			Meta:    meta,
			Timeout: timeout,
		},
		{
			Name:        NameBrowserClick,
			Description: "Click the first visible element matching a CSS selector.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"selector": map[string]any{
						"type":        "string",
						"description": "CSS selector of the element to click.",
					},
				},
				"required": []string{"selector"},
			},
			Handler: func(ctx context.Context, args domain.Args) (domain.ToolOutput, error) {
				selector := args.String("selector")
				if err := session.Click(ctx, selector); err != nil {
					return domain.ToolOutput{}, err
				}
				return domain.ToolOutput{Message: fmt.Sprintf("clicked %q", selector)}, nil
			},
			Meta:    meta,
			Timeout: timeout,
		},
		{
			Name:        NameBrowserType,
			Description: "Type text into the first visible element matching a CSS selector.",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"selector": map[string]any{
						"type":        "string",
						"description": "CSS selector of the input element.",
					},
					"text": map[string]any{
						"type":        "string",
						"description": "Text to send to the element.",
					},
				},
				"required": []string{"selector", "text"},
			},
			Handler: func(ctx context.Context, args domain.Args) (domain.ToolOutput, error) {
				selector := args.String("selector")
				if err := session.Type(ctx, selector, args.String("text")); err != nil {
					return domain.ToolOutput{}, err
				}
				return domain.ToolOutput{Message: fmt.Sprintf("typed into %q", selector)}, nil
			},
			Meta:    meta,
			Timeout: timeout,
		},
		{
			Name:        NameBrowserGetContent,
			Description: "Return the HTML content of the current page.",
			Schema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
			Handler: func(ctx context.Context, args domain.Args) (domain.ToolOutput, error) {
				html, err := session.Content(ctx)
				if err != nil {
					return domain.ToolOutput{}, err
				}
				return domain.ToolOutput{
					Data:    map[string]any{"html": html},
					Message: fmt.Sprintf("page content captured (%d bytes)", len(html)),
				}, nil
			},
			Meta:    meta,
			Timeout: timeout,
		},
	}
}
