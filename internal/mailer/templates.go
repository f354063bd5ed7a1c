package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
	texttemplate "text/template"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var builtinTemplates embed.FS

// TemplateSource is the on-disk shape of an email template.
type TemplateSource struct {
	Subject string `yaml:"subject"`
	Text    string `yaml:"text"`
	HTML    string `yaml:"html"`
}

type compiled struct {
	subject *texttemplate.Template
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

// Renderer turns named templates plus data into Message bodies. Built-in
// templates are always present; files in an override directory replace
// them by name (file stem).
type Renderer struct {
	mu        sync.RWMutex
	templates map[string]*compiled
	builtins  map[string]*compiled
	logger    *slog.Logger
}

// NewRenderer loads the built-in templates and, when dir is not empty, the
// overrides found there.
func NewRenderer(dir string, logger *slog.Logger) (*Renderer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Renderer{templates: make(map[string]*compiled), logger: logger}

	if err := r.loadFS(builtinTemplates, "templates"); err != nil {
		return nil, fmt.Errorf("load built-in templates: %w", err)
	}
	r.builtins = maps.Clone(r.templates)
	if dir != "" {
		if err := r.LoadDir(dir); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Render executes the named template. The returned Message has no recipient.
func (r *Renderer) Render(name string, data any) (Message, error) {
	r.mu.RLock()
	t, ok := r.templates[name]
	r.mu.RUnlock()
	if !ok {
		return Message{}, fmt.Errorf("unknown email template %q", name)
	}

	var subject, text, html bytes.Buffer
	if err := t.subject.Execute(&subject, data); err != nil {
		return Message{}, fmt.Errorf("render %s subject: %w", name, err)
	}
	if err := t.text.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render %s text: %w", name, err)
	}
	if err := t.html.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render %s html: %w", name, err)
	}
	return Message{
		Subject: strings.TrimSpace(subject.String()),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}

// LoadDir parses every *.yaml file in dir. Files that fail to parse are
// logged and skipped; the previously loaded version stays active.
func (r *Renderer) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read templates dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !isTemplateFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := r.loadFile(path); err != nil {
			r.logger.Warn("template override rejected",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

func (r *Renderer) loadFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !isTemplateFile(e.Name()) {
			continue
		}
		data, err := fs.ReadFile(fsys, dir+"/"+e.Name())
		if err != nil {
			return err
		}
		if err := r.install(templateName(e.Name()), data); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return r.install(templateName(filepath.Base(path)), data)
}

func (r *Renderer) install(name string, data []byte) error {
	var src TemplateSource
	if err := yaml.Unmarshal(data, &src); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	if strings.TrimSpace(src.Subject) == "" || strings.TrimSpace(src.Text) == "" {
		return fmt.Errorf("template %s: subject and text are required", name)
	}
	c, err := compile(name, src)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.templates[name] = c
	r.mu.Unlock()
	r.logger.Debug("email template loaded", slog.String("name", name))
	return nil
}

// restore drops the override for name, falling back to the built-in
// template when there is one.
func (r *Renderer) restore(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.builtins[name]; ok {
		r.templates[name] = b
		return
	}
	delete(r.templates, name)
}

func compile(name string, src TemplateSource) (*compiled, error) {
	subject, err := texttemplate.New(name + ".subject").Option("missingkey=error").Parse(src.Subject)
	if err != nil {
		return nil, fmt.Errorf("template %s subject: %w", name, err)
	}
	text, err := texttemplate.New(name + ".text").Option("missingkey=error").Parse(src.Text)
	if err != nil {
		return nil, fmt.Errorf("template %s text: %w", name, err)
	}
	html, err := htmltemplate.New(name + ".html").Option("missingkey=error").Parse(src.HTML)
	if err != nil {
		return nil, fmt.Errorf("template %s html: %w", name, err)
	}
	return &compiled{subject: subject, text: text, html: html}, nil
}

// Watch reloads overrides in dir whenever a template file changes, until
// ctx is cancelled. Bursts of events are coalesced. A removed override
// reverts to the built-in template.
func (r *Renderer) Watch(ctx context.Context, dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	r.logger.Info("template watcher: started", slog.String("dir", dir))

	const debounce = 200 * time.Millisecond
	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			r.logger.Info("template watcher: stopped")
			return nil

		case <-timerCh:
			for path := range pending {
				if _, err := os.Stat(path); err != nil {
					r.restore(templateName(filepath.Base(path)))
					r.logger.Info("template override removed", slog.String("path", path))
					continue
				}
				if err := r.loadFile(path); err != nil {
					r.logger.Warn("template reload rejected",
						slog.String("path", path),
						slog.String("error", err.Error()))
					continue
				}
				r.logger.Info("template reloaded", slog.String("path", path))
			}
			clear(pending)
			timerCh = nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isTemplateFile(ev.Name) || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			pending[ev.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			timerCh = timer.C

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("template watcher error", slog.String("error", err.Error()))
		}
	}
}

func isTemplateFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

func templateName(file string) string {
	return strings.TrimSuffix(file, filepath.Ext(file))
}
