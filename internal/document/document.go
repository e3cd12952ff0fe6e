// Package document parses artifact description documents.
//
// A document describes one artifact version:
//
//	info:
//	  id: compilers/toolchain
//	  version: 1.5.0
//	  summary: Cross compiler toolchain
//	  priority: 10
//	requires:
//	  tools/make: ">=4.0.0"
//	install:
//	  kind: zip
//	  location: https://example.com/toolchain-1.5.0.zip
//	when:
//	  linux & arm64:
//	    requires:
//	      libs/glibc: ">=2.30.0"
//	  windows:
//	    error: toolchain is not available on windows
//
// Top-level requires, settings, install, error, warning and message form
// the block that always applies. Each entry under when is a block guarded
// by its key, a host condition.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/artman/internal/artifact"
	amerrors "github.com/Aman-CERP/artman/internal/errors"
	"github.com/Aman-CERP/artman/internal/hostenv"
	"github.com/Aman-CERP/artman/internal/index"
)

// AlwaysBlock names the unconditioned block.
const AlwaysBlock = "always"

type infoDoc struct {
	ID       string `yaml:"id"`
	Version  string `yaml:"version"`
	Summary  string `yaml:"summary"`
	Priority int    `yaml:"priority"`
}

type blockDoc struct {
	Requires map[string]string `yaml:"requires"`
	Settings map[string]any    `yaml:"settings"`
	Install  installList       `yaml:"install"`
	Error    string            `yaml:"error"`
	Warning  string            `yaml:"warning"`
	Message  string            `yaml:"message"`
}

func (b blockDoc) empty() bool {
	return len(b.Requires) == 0 && len(b.Settings) == 0 && len(b.Install) == 0 &&
		b.Error == "" && b.Warning == "" && b.Message == ""
}

type fileDoc struct {
	Info     infoDoc `yaml:"info"`
	blockDoc `yaml:",inline"`
	When     yaml.Node `yaml:"when"`
}

// installList accepts a single instruction or a list of them.
type installList []artifact.InstallInstruction

func (l *installList) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.MappingNode {
		var one artifact.InstallInstruction
		if err := n.Decode(&one); err != nil {
			return err
		}
		*l = installList{one}
		return nil
	}
	var many []artifact.InstallInstruction
	if err := n.Decode(&many); err != nil {
		return err
	}
	*l = many
	return nil
}

// Parse parses the document at path. Format errors mean content is not a
// well-formed document and the record is nil. Validation errors mean the
// record was read but is not fit to index.
func Parse(path string, content []byte) (rec *artifact.Record, formatErrs, validationErrs []error) {
	var doc fileDoc
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, []error{fmt.Errorf("empty document")}, nil
		}
		var te *yaml.TypeError
		if errors.As(err, &te) {
			for _, msg := range te.Errors {
				formatErrs = append(formatErrs, errors.New(msg))
			}
			return nil, formatErrs, nil
		}
		return nil, []error{err}, nil
	}

	rec = &artifact.Record{
		ID:       strings.TrimSpace(doc.Info.ID),
		Version:  strings.TrimSpace(doc.Info.Version),
		Summary:  strings.TrimSpace(doc.Info.Summary),
		Priority: doc.Info.Priority,
		Location: path,
	}
	if !doc.blockDoc.empty() {
		rec.Demands = append(rec.Demands, toBlock(AlwaysBlock, "", doc.blockDoc))
	}

	if doc.When.Kind != 0 {
		if doc.When.Kind != yaml.MappingNode {
			return nil, []error{fmt.Errorf("line %d: when must be a mapping of condition to block", doc.When.Line)}, nil
		}
		for i := 0; i+1 < len(doc.When.Content); i += 2 {
			key, val := doc.When.Content[i], doc.When.Content[i+1]
			var b blockDoc
			if err := val.Decode(&b); err != nil {
				formatErrs = append(formatErrs, fmt.Errorf("line %d: block %q: %w", key.Line, key.Value, err))
				continue
			}
			rec.Demands = append(rec.Demands, toBlock(key.Value, key.Value, b))
		}
		if len(formatErrs) > 0 {
			return nil, formatErrs, nil
		}
	}

	return rec, nil, Validate(rec)
}

func toBlock(name, condition string, b blockDoc) artifact.DemandBlock {
	return artifact.DemandBlock{
		Name:      name,
		Condition: condition,
		Requires:  b.Requires,
		Settings:  b.Settings,
		Error:     b.Error,
		Warning:   b.Warning,
		Message:   b.Message,
		Install:   b.Install,
	}
}

// Validate checks that rec is fit to index.
func Validate(rec *artifact.Record) []error {
	var errs []error
	if err := ValidateIdentity(rec.ID); err != nil {
		errs = append(errs, fmt.Errorf("info.id: %w", err))
	}
	if rec.Version == "" {
		errs = append(errs, fmt.Errorf("info.version: required"))
	} else if _, err := index.SemverCodec.Coerce(rec.Version); err != nil {
		errs = append(errs, fmt.Errorf("info.version %q: %w", rec.Version, err))
	}

	for _, b := range rec.Demands {
		if b.Kind() == artifact.Conditional && !hostenv.IsValid(b.Condition) {
			errs = append(errs, fmt.Errorf("when %q: invalid condition", b.Condition))
		}
		for id, rng := range b.Requires {
			if err := ValidateIdentity(stripSource(id)); err != nil {
				errs = append(errs, fmt.Errorf("%s.requires %q: %w", b.Name, id, err))
			}
			if strings.TrimSpace(rng) == "" {
				continue
			}
			if _, err := index.ParseRange(rng); err != nil {
				errs = append(errs, fmt.Errorf("%s.requires %q: %w", b.Name, id, err))
			}
		}
		for i, in := range b.Install {
			if in.Kind == "" || in.Location == "" {
				errs = append(errs, fmt.Errorf("%s.install[%d]: kind and location are required", b.Name, i))
			}
		}
	}
	return errs
}

// ValidateIdentity checks that id is a slash-delimited path of non-empty
// segments without whitespace.
func ValidateIdentity(id string) error {
	if id == "" {
		return fmt.Errorf("required")
	}
	for _, seg := range strings.Split(id, index.IdentitySeparator) {
		if seg == "" {
			return fmt.Errorf("%q has an empty segment", id)
		}
		if strings.ContainsAny(seg, " \t\r\n:@") {
			return fmt.Errorf("%q contains a reserved character", id)
		}
	}
	return nil
}

func stripSource(id string) string {
	if i := strings.Index(id, ":"); i >= 0 {
		return id[i+1:]
	}
	return id
}

// ParseFile reads and parses the document at path, folding every format
// or validation problem into one error.
func ParseFile(path string) (*artifact.Record, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, amerrors.New(amerrors.ErrCodeFileNotFound, "document not found", err).WithDetail("path", path)
		}
		return nil, amerrors.IOError("failed to read document", err).WithDetail("path", path)
	}
	rec, formatErrs, validationErrs := Parse(path, content)
	if problems := append(formatErrs, validationErrs...); len(problems) > 0 {
		return nil, Invalid(path, problems)
	}
	return rec, nil
}

// Invalid builds the error reported for a document with problems.
func Invalid(path string, problems []error) error {
	msgs := make([]string, len(problems))
	for i, p := range problems {
		msgs[i] = p.Error()
	}
	return amerrors.New(amerrors.ErrCodeDocumentInvalid, "invalid artifact document", errors.Join(problems...)).
		WithDetail("path", path).
		WithDetail("problems", strings.Join(msgs, "; "))
}
