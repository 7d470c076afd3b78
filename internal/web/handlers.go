package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/r9s-ai/ngx2edge/pkg/edgegen"
	"github.com/r9s-ai/ngx2edge/pkg/nginxconf"
)

// convertRequest is the body of POST /api/convert and /api/validate.
// Exactly one of Config (nginx source text) and Tree (crossplane-shape
// JSON) must be present. An empty Targets list means every target.
type convertRequest struct {
	Config  string          `json:"config"`
	Tree    json.RawMessage `json:"tree"`
	Targets []string        `json:"targets"`
}

type targetResult struct {
	Target   string   `json:"target"`
	Filename string   `json:"filename"`
	Code     string   `json:"code"`
	Warnings []string `json:"warnings"`
}

type convertResponse struct {
	OK              bool           `json:"ok"`
	BuilderWarnings []string       `json:"builder_warnings,omitempty"`
	Results         []targetResult `json:"results,omitempty"`
	Errors          []string       `json:"errors,omitempty"`
	Error           string         `json:"error,omitempty"`
}

type validateTargetResult struct {
	Target string `json:"target"`
	edgegen.ValidationResult
}

type validateResponse struct {
	OK              bool                   `json:"ok"`
	BuilderWarnings []string               `json:"builder_warnings,omitempty"`
	Results         []validateTargetResult `json:"results,omitempty"`
	Error           string                 `json:"error,omitempty"`
}

func handleTargets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"targets": edgegen.Targets()})
}

func handleConvert(c *gin.Context) {
	in, err := decodeConvertRequest(c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, convertResponse{Error: err.Error()})
		return
	}
	cfg, buildWarns, err := buildFromRequest(in)
	if err != nil {
		c.JSON(http.StatusBadRequest, convertResponse{Error: err.Error()})
		return
	}
	gens, err := makeGenerators(in.Targets, cfg)
	if err != nil {
		c.JSON(http.StatusBadRequest, convertResponse{Error: err.Error()})
		return
	}

	var allErrors []string
	results := make([]targetResult, 0, len(gens))
	for _, g := range gens {
		res := g.Validate()
		if !res.Valid {
			for _, e := range res.Errors {
				allErrors = append(allErrors, g.Target()+": "+e)
			}
			continue
		}
		code, genErr := g.Generate()
		if genErr != nil {
			allErrors = append(allErrors, genErr.Error())
			continue
		}
		results = append(results, targetResult{
			Target:   g.Target(),
			Filename: g.Target() + g.FileExtension(),
			Code:     code,
			Warnings: res.Warnings,
		})
	}
	if len(allErrors) > 0 {
		c.JSON(http.StatusUnprocessableEntity, convertResponse{
			BuilderWarnings: warningStrings(buildWarns),
			Errors:          allErrors,
		})
		return
	}
	c.JSON(http.StatusOK, convertResponse{
		OK:              true,
		BuilderWarnings: warningStrings(buildWarns),
		Results:         results,
	})
}

func handleValidate(c *gin.Context) {
	in, err := decodeConvertRequest(c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, validateResponse{Error: err.Error()})
		return
	}
	cfg, buildWarns, err := buildFromRequest(in)
	if err != nil {
		c.JSON(http.StatusBadRequest, validateResponse{Error: err.Error()})
		return
	}
	gens, err := makeGenerators(in.Targets, cfg)
	if err != nil {
		c.JSON(http.StatusBadRequest, validateResponse{Error: err.Error()})
		return
	}

	results := make([]validateTargetResult, 0, len(gens))
	for _, g := range gens {
		results = append(results, validateTargetResult{
			Target:           g.Target(),
			ValidationResult: g.Validate(),
		})
	}
	c.JSON(http.StatusOK, validateResponse{
		OK:              true,
		BuilderWarnings: warningStrings(buildWarns),
		Results:         results,
	})
}

func decodeConvertRequest(r *http.Request) (convertRequest, error) {
	var in convertRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return in, fmt.Errorf("decode request: %w", err)
	}
	return in, nil
}

func buildFromRequest(in convertRequest) (*nginxconf.Config, []nginxconf.BuildWarning, error) {
	hasConfig := strings.TrimSpace(in.Config) != ""
	treeRaw := bytes.TrimSpace(in.Tree)
	hasTree := len(treeRaw) > 0 && string(treeRaw) != "null"
	if hasConfig == hasTree {
		return nil, nil, errors.New("exactly one of config or tree must be provided")
	}

	var tree []*nginxconf.Directive
	var err error
	if hasConfig {
		tree, err = nginxconf.ParseString(in.Config)
	} else {
		tree, err = nginxconf.DecodeTree(bytes.NewReader(treeRaw))
	}
	if err != nil {
		return nil, nil, err
	}
	cfg, warns := nginxconf.Build(tree)
	return cfg, warns, nil
}

func makeGenerators(targets []string, cfg *nginxconf.Config) ([]edgegen.Generator, error) {
	names := normalizeTargets(targets)
	out := make([]edgegen.Generator, 0, len(names))
	for _, name := range names {
		g, err := edgegen.New(name, cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func normalizeTargets(targets []string) []string {
	seen := make(map[string]bool, len(targets))
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		v := strings.ToLower(strings.TrimSpace(t))
		if v == "" || seen[v] {
			continue
		}
		if v == "all" {
			return edgegen.TargetNames()
		}
		seen[v] = true
		out = append(out, v)
	}
	if len(out) == 0 {
		return edgegen.TargetNames()
	}
	return out
}

func warningStrings(warns []nginxconf.BuildWarning) []string {
	if len(warns) == 0 {
		return nil
	}
	out := make([]string, len(warns))
	for i, w := range warns {
		out[i] = w.String()
	}
	return out
}
