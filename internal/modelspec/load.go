package modelspec

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"gopkg.in/yaml.v3"
)

// Load reads a spec from a directory of CUE files, a single .cue file or
// a .yaml/.yml file. model selects one entry under the top-level "model"
// object; it may be empty when the file holds exactly one model or a bare
// model body.
func Load(path, model string) (*Spec, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: CodeNotFound, Message: fmt.Sprintf("spec not found: %s", path), Err: err}
	}
	if err != nil {
		return nil, &LoadError{Code: CodeNotFound, Message: fmt.Sprintf("error accessing spec: %v", err), Err: err}
	}
	if info.IsDir() {
		return LoadCUE(path, model)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return LoadCUE(path, model)
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &LoadError{Code: CodeLoadFailed, Message: err.Error(), Err: err}
		}
		return ParseYAML(path, data, model)
	}
	return nil, &LoadError{Code: CodeLoadFailed, Message: fmt.Sprintf("unsupported spec file %s: want .cue, .yaml or .yml", path)}
}

// LoadCUE loads a CUE package directory or a single .cue file.
func LoadCUE(path, model string) (*Spec, error) {
	dir, args := path, []string{"."}
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		dir, args = filepath.Dir(path), []string{filepath.Base(path)}
	} else {
		files, err := FindCUEFiles(path)
		if err != nil {
			return nil, &LoadError{Code: CodeNotFound, Message: fmt.Sprintf("error scanning directory: %v", err), Err: err}
		}
		if len(files) == 0 {
			return nil, &LoadError{Code: CodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
		}
	}

	instances := load.Instances(args, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: CodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, cueError(CodeLoadFailed, inst.Err)
	}
	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, cueError(CodeBuildFailed, err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(CodeBuildFailed, err)
	}
	root, err := fromCUE(value)
	if err != nil {
		return nil, err
	}
	return fromRoot(root, dir, model, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

// ParseCUE compiles CUE source held in memory. Relative data paths
// resolve against dir.
func ParseCUE(filename string, src []byte, dir, model string) (*Spec, error) {
	value := cuecontext.New().CompileBytes(src, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, cueError(CodeBuildFailed, err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(CodeBuildFailed, err)
	}
	root, err := fromCUE(value)
	if err != nil {
		return nil, err
	}
	return fromRoot(root, dir, model, strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
}

// ParseYAML decodes YAML source. Relative data paths resolve against the
// directory of path.
func ParseYAML(path string, data []byte, model string) (*Spec, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Code: CodeLoadFailed, Message: err.Error(), Pos: Position{File: path}, Err: err}
	}
	root, err := fromYAML(path, &doc)
	if err != nil {
		return nil, err
	}
	return fromRoot(root, filepath.Dir(path), model, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

// fromRoot picks the model body out of a decoded file.
func fromRoot(root *node, dir, model, fallback string) (*Spec, error) {
	if root.kind != kindObject {
		return nil, invalid(root, "", "spec must be an object")
	}
	models := root.get("model")
	if models == nil {
		if model != "" {
			return nil, &LoadError{Code: CodeNotFound, Field: "model", Message: fmt.Sprintf("model %q not found", model), Pos: root.pos}
		}
		return decodeModel(fallback, dir, root)
	}
	if models.kind != kindObject || len(models.fields) == 0 {
		return nil, invalid(models, "model", "must be an object of model name to body")
	}
	if model == "" {
		if len(models.fields) > 1 {
			return nil, invalid(models, "model", "file defines several models (%s); choose one",
				strings.Join(modelNames(models), ", "))
		}
		model = models.fields[0].label
	}
	body := models.get(model)
	if body == nil {
		return nil, &LoadError{Code: CodeNotFound, Field: "model", Message: fmt.Sprintf("model %q not found; have %s", model,
			strings.Join(modelNames(models), ", ")), Pos: models.pos}
	}
	return decodeModel(model, dir, body)
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// Errors flattens a joined load or compile error, at any depth, into its
// parts.
func Errors(err error) []error {
	if err == nil {
		return nil
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return []error{err}
	}
	var out []error
	for _, e := range joined.Unwrap() {
		out = append(out, Errors(e)...)
	}
	return out
}
