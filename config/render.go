package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/0xPolygon/zkbatcher/log"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/valyala/fasttemplate"
)

const (
	startTag = "{{"
	endTag   = "}}"
	// typeMark is appended to the bare vars while the file is parsed as TOML,
	// so that `A = {{B}}` is a valid string and can be restored afterwards
	typeMark = ":int"
)

var (
	// ErrCycleVars is returned when some vars only depend on each other
	ErrCycleVars = errors.New("cycle vars")
	// ErrMissingVars is returned when a var is neither defined nor set in the environment
	ErrMissingVars = errors.New("missing vars")
	// ErrUnsupportedConfigFileType is returned for config files that can't be converted to TOML
	ErrUnsupportedConfigFileType = errors.New("unsupported config file type")

	bareVarRe   = regexp.MustCompile(`=\s*\{\{([^}:]+)\}\}`)
	quotedVarRe = regexp.MustCompile(`=\s*\"\{\{([^}:]+` + typeMark + `)\}\}\"`)
	markedVarRe = regexp.MustCompile(`\{\{([^}:]+` + typeMark + `)\}\}`)
)

// FileData is the content of one config file
type FileData struct {
	Name    string
	Content string
}

// Renderer merges config files, later files overriding earlier ones, and resolves
// the {{Var}} references. A var is looked up first in the environment
// (<EnvPrefix>_<Var with dots replaced by underscores>) and then in the merged config.
type Renderer struct {
	Files     []FileData
	LookupEnv func(key string) (string, bool)
	EnvPrefix string
}

// NewRenderer returns a Renderer reading the process environment
func NewRenderer(files []FileData, envPrefix string) *Renderer {
	return &Renderer{
		Files:     files,
		LookupEnv: os.LookupEnv,
		EnvPrefix: envPrefix,
	}
}

// Render merges the files and resolves every var
func (r *Renderer) Render() (string, error) {
	merged, err := r.Merge()
	if err != nil {
		return "", fmt.Errorf("fail to merge files. Err: %w", err)
	}
	return r.resolve(merged)
}

// Merge merges the files in order without resolving any var
func (r *Renderer) Merge() (string, error) {
	k := koanf.New(".")
	for _, f := range r.Files {
		content := markBareVars(f.Content)
		if err := k.Load(rawbytes.Provider([]byte(content)), toml.Parser()); err != nil {
			log.Errorf("error loading file %s. Err:%v. Content: %v", f.Name, err, content)
			return "", fmt.Errorf("fail to load file %s as toml. Err: %w", f.Name, err)
		}
	}
	out, err := k.Marshal(toml.Parser())
	if err != nil {
		return "", fmt.Errorf("fail to marshal to toml. Err: %w", err)
	}
	return unquoteMarkedVars(string(out)), nil
}

// resolve fills every var that has a value. Vars left after that are either missing,
// which is an error, or defined through other vars, which is resolved iteratively.
func (r *Renderer) resolve(data string) (string, error) {
	tpl, values, err := r.parse(data)
	if err != nil {
		return "", err
	}
	rendered := removeTypeMarks(r.substitute(tpl, values))

	if missing := r.missing(tpl, values); len(missing) > 0 {
		return rendered, fmt.Errorf("missing vars: %v. Err: %w", missing, ErrMissingVars)
	}

	final, err := r.resolveChained(rendered)
	if err != nil {
		return data, err
	}
	return final, nil
}

// resolveChained substitutes again until no var is left. Every round must reduce
// the number of pending vars, otherwise the remaining ones form a cycle
// (A = {{B}}, B = {{C}}, C = {{A}}).
func (r *Renderer) resolveChained(data string) (string, error) {
	current := unquoteMarkedVars(data)
	pending := pendingVars(current)
	if len(pending) == 0 {
		return data, nil
	}
	log.Debugf("pending vars after first substitution: %v", pending)

	for len(pending) > 0 {
		before := len(pending)
		tpl, values, err := r.parse(current)
		if err != nil {
			return "", fmt.Errorf("fail to parse partially resolved config. Err: %w", err)
		}
		current = removeTypeMarks(unquoteMarkedVars(r.substitute(tpl, values)))
		pending = pendingVars(current)
		if len(pending) == before {
			return data, fmt.Errorf("not resolved cycle vars: %v. Err: %w", pending, ErrCycleVars)
		}
	}
	return current, nil
}

// parse returns the template of data and the values it defines. The vars in data
// must be bare: A = {{B}}, not A = "{{B}}".
func (r *Renderer) parse(data string) (*fasttemplate.Template, map[string]interface{}, error) {
	tpl, err := fasttemplate.NewTemplate(data, startTag, endTag)
	if err != nil {
		return nil, nil, fmt.Errorf("fail to load template. Err: %w", err)
	}
	k := koanf.New(".")
	content := markBareVars(data)
	if err := k.Load(rawbytes.Provider([]byte(content)), toml.Parser()); err != nil {
		return nil, nil, fmt.Errorf("fail to parse config. Content: %s. Err: %w", content, err)
	}
	return tpl, k.All(), nil
}

func (r *Renderer) substitute(tpl *fasttemplate.Template, values map[string]interface{}) string {
	return tpl.ExecuteFuncString(func(w io.Writer, tag string) (int, error) {
		if v, ok := r.envValue(tag); ok {
			return w.Write([]byte(v))
		}
		if v, ok := values[tag]; ok {
			return fmt.Fprintf(w, "%v", v)
		}
		return w.Write([]byte(startTag + tag + endTag))
	})
}

// missing returns the vars of tpl that have no value, once each
func (r *Renderer) missing(tpl *fasttemplate.Template, values map[string]interface{}) []string {
	var res []string
	tpl.ExecuteFuncString(func(w io.Writer, tag string) (int, error) {
		if _, ok := r.envValue(tag); ok {
			return 0, nil
		}
		if _, ok := values[tag]; !ok && !containsString(res, tag) {
			res = append(res, tag)
		}
		return 0, nil
	})
	return res
}

func (r *Renderer) envValue(tag string) (string, bool) {
	if r.LookupEnv == nil {
		return "", false
	}
	return r.LookupEnv(r.EnvPrefix + "_" + strings.ReplaceAll(tag, ".", "_"))
}

func pendingVars(data string) []string {
	tpl, err := fasttemplate.NewTemplate(data, startTag, endTag)
	if err != nil {
		return nil
	}
	var res []string
	tpl.ExecuteFuncString(func(w io.Writer, tag string) (int, error) {
		res = append(res, tag)
		return 0, nil
	})
	return res
}

// markBareVars turns A = {{B}} into A = "{{B:int}}" so the file can be parsed
func markBareVars(data string) string {
	return bareVarRe.ReplaceAllString(data, `= "{{${1}`+typeMark+`}}"`)
}

// unquoteMarkedVars is the inverse of markBareVars
func unquoteMarkedVars(data string) string {
	return quotedVarRe.ReplaceAllStringFunc(data, func(match string) string {
		sub := quotedVarRe.FindStringSubmatch(match)
		return "= " + startTag + strings.TrimSuffix(sub[1], typeMark) + endTag
	})
}

func removeTypeMarks(data string) string {
	return markedVarRe.ReplaceAllStringFunc(data, func(match string) string {
		sub := markedVarRe.FindStringSubmatch(match)
		return startTag + strings.TrimSuffix(sub[1], typeMark) + endTag
	})
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}

// convertFileToToml converts the content of a non TOML config file
func convertFileToToml(content string, fileType string) (string, error) {
	switch strings.ToLower(fileType) {
	case "json":
		k := koanf.New(".")
		if err := k.Load(rawbytes.Provider([]byte(content)), json.Parser()); err != nil {
			return content, fmt.Errorf("error loading json file. Err: %w", err)
		}
		out, err := toml.Parser().Marshal(k.Raw())
		if err != nil {
			return content, fmt.Errorf("error converting json to toml. Err: %w", err)
		}
		return string(out), nil
	case "yml", "yaml", "ini":
		return content, fmt.Errorf("cant convert from %s to TOML. Err: %w", fileType, ErrUnsupportedConfigFileType)
	default:
		log.Warnf("filetype %s unknown, assuming is a TOML file", fileType)
		return content, nil
	}
}
