// Package loader extracts service declarations from Go packages.
package loader

import (
	"cmp"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"iter"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/alecthomas/errors"
	"golang.org/x/mod/modfile"
	"golang.org/x/tools/go/packages"

	"github.com/alecthomas/zerodi/internal/directiveparser"
	"github.com/alecthomas/zerodi/internal/logging"
	"github.com/alecthomas/zerodi/internal/model"
)

type loadOptions struct {
	dir      string
	patterns []string
	tags     []string
	logger   *slog.Logger
}

type Option func(*loadOptions) error

// WithDir sets the directory packages are loaded relative to.
func WithDir(dir string) Option {
	return func(o *loadOptions) error {
		o.dir = dir
		return nil
	}
}

// WithPatterns adds package patterns to load, defaulting to "./...".
func WithPatterns(patterns ...string) Option {
	return func(o *loadOptions) error {
		o.patterns = append(o.patterns, patterns...)
		return nil
	}
}

// WithTags sets build tags used while type checking.
func WithTags(tags ...string) Option {
	return func(o *loadOptions) error {
		for _, tag := range tags {
			if strings.ContainsAny(tag, " \t,") {
				return errors.Errorf("invalid build tag %q", tag)
			}
		}
		o.tags = append(o.tags, tags...)
		return nil
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *loadOptions) error {
		o.logger = logger
		return nil
	}
}

// Load the service declarations of every package matching the configured patterns.
//
// Declarations are ordered by package path, then by source position. Only failures to load or
// type check packages are errors. A directive that cannot be parsed or applied is ignored and
// recorded in the result's [model.Set.Invalid] list.
func Load(options ...Option) (*model.Set, error) {
	opts := &loadOptions{logger: logging.Discard()}
	for _, option := range options {
		if err := option(opts); err != nil {
			return nil, errors.WithStack(err)
		}
	}
	if len(opts.patterns) == 0 {
		opts.patterns = []string{"./..."}
	}

	var required []string
	for _, pattern := range opts.patterns {
		if strings.Contains(pattern, "...") || !modfile.IsDirectoryPath(pattern) {
			continue
		}
		importPath, err := importPathForDir(filepath.Join(opts.dir, pattern))
		if err != nil {
			return nil, errors.Errorf("failed to determine import path for directory %s: %w", pattern, err)
		}
		required = append(required, importPath)
	}

	fset := token.NewFileSet()
	cfg := &packages.Config{
		Dir:  opts.dir,
		Fset: fset,
		Logf: logging.Logf(opts.logger, slog.LevelDebug),
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedImports | packages.NeedTypes |
			packages.NeedSyntax | packages.NeedTypesInfo,
	}
	if len(opts.tags) > 0 {
		cfg.BuildFlags = []string{"-tags=" + strings.Join(opts.tags, ",")}
	}
	pkgs, err := packages.Load(cfg, opts.patterns...)
	if err != nil {
		return nil, errors.Errorf("failed to load packages: %w", err)
	}
	slices.SortFunc(pkgs, func(a, b *packages.Package) int { return cmp.Compare(a.PkgPath, b.PkgPath) })
	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			return nil, errors.Errorf("%s: %s", pkg.PkgPath, pkg.Errors[0])
		}
	}
	for _, importPath := range required {
		if !slices.ContainsFunc(pkgs, func(pkg *packages.Package) bool { return pkg.PkgPath == importPath }) {
			return nil, errors.Errorf("package %q not found", importPath)
		}
	}
	opts.logger.Debug("Loaded packages", "count", len(pkgs))

	l := &loader{
		fset:       fset,
		logger:     opts.logger,
		kinds:      map[model.TypeKey]model.TypeKind{},
		interfaces: map[model.TypeKey]*types.Interface{},
		configs:    map[model.TypeKey]bool{},
		services:   map[model.TypeKey]types.Type{},
		parsed:     map[*ast.CommentGroup][]directive{},
	}
	for _, pkg := range pkgs {
		l.scan(pkg)
	}
	var fragments []*model.Declaration
	for _, pkg := range pkgs {
		fragments = append(fragments, l.declarations(pkg)...)
	}
	l.implements(fragments)
	set := model.NewSet(fragments, l.kinds).WithInvalid(l.invalid...)
	opts.logger.Debug("Loaded declarations", "count", len(set.Declarations()), "invalid", len(l.invalid))
	return set, nil
}

type loader struct {
	fset       *token.FileSet
	logger     *slog.Logger
	kinds      map[model.TypeKey]model.TypeKind
	interfaces map[model.TypeKey]*types.Interface
	configs    map[model.TypeKey]bool
	services   map[model.TypeKey]types.Type
	// Directives of each comment group, parsed once.
	parsed  map[*ast.CommentGroup][]directive
	invalid []*model.InvalidDirective
}

type directive struct {
	pos       token.Position
	directive directiveparser.Directive
}

// parseDirectives parses all directives in a comment group attached to the type key.
//
// Directives that fail to parse are recorded as invalid, once per comment group, and dropped.
func (l *loader) parseDirectives(key model.TypeKey, doc *ast.CommentGroup) []directive {
	if doc == nil {
		return nil
	}
	if out, ok := l.parsed[doc]; ok {
		return out
	}
	var out []directive
	for _, comment := range doc.List {
		text, ok := strings.CutPrefix(comment.Text, "//")
		if !ok || !directiveparser.IsDirective(text) {
			continue
		}
		text = strings.TrimSpace(text)
		pos := l.fset.Position(comment.Pos())
		parsed, err := directiveparser.Parse(text)
		if err != nil {
			l.reject(key, pos, directiveName(text), err.Error())
			continue
		}
		out = append(out, directive{pos, parsed})
	}
	l.parsed[doc] = out
	return out
}

// reject records an ignored directive.
func (l *loader) reject(key model.TypeKey, pos token.Position, name, message string) {
	l.logger.Debug("Ignoring invalid directive", "type", key, "pos", pos, "error", message)
	l.invalid = append(l.invalid, &model.InvalidDirective{
		Service:   key,
		Position:  pos,
		Directive: name,
		Message:   message,
	})
}

// directiveName returns the name of a directive, eg. "when" for "di:when env=\"test\"".
func directiveName(text string) string {
	name := strings.TrimPrefix(text, "di:")
	if i := strings.IndexFunc(name, func(r rune) bool { return r == ' ' || r == '\t' }); i >= 0 {
		name = name[:i]
	}
	return name
}

type typeDecl struct {
	file *ast.File
	gen  *ast.GenDecl
	spec *ast.TypeSpec
}

func typeDecls(pkg *packages.Package) iter.Seq[typeDecl] {
	return func(yield func(typeDecl) bool) {
		for _, file := range pkg.Syntax {
			for _, decl := range file.Decls {
				gen, ok := decl.(*ast.GenDecl)
				if !ok || gen.Tok != token.TYPE {
					continue
				}
				for _, spec := range gen.Specs {
					spec := spec.(*ast.TypeSpec)
					// Aliases and generic types cannot be services.
					if spec.Assign.IsValid() || spec.TypeParams != nil {
						continue
					}
					if !yield(typeDecl{file, gen, spec}) {
						return
					}
				}
			}
		}
	}
}

// scan classifies the named types of pkg and finds its configuration and service types.
func (l *loader) scan(pkg *packages.Package) {
	scope := pkg.Types.Scope()
	for _, name := range scope.Names() {
		obj, ok := scope.Lookup(name).(*types.TypeName)
		if !ok {
			continue
		}
		l.classify(obj.Type())
	}
	for td := range typeDecls(pkg) {
		gen, spec := td.gen, td.spec
		obj, ok := pkg.TypesInfo.Defs[spec.Name].(*types.TypeName)
		if !ok {
			continue
		}
		key := model.TypeKey(types.TypeString(obj.Type(), nil))
		group := l.parseDirectives(key, gen.Doc)
		own := l.parseDirectives(key, spec.Doc)
		directives := slices.Concat(group, own)
		config := slices.ContainsFunc(directives, func(d directive) bool {
			_, ok := d.directive.(*directiveparser.DirectiveConfig)
			return ok
		})
		if config {
			for _, d := range directives {
				if _, ok := d.directive.(*directiveparser.DirectiveConfig); !ok {
					l.reject(key, d.pos, directiveName(d.directive.String()),
						fmt.Sprintf("%s: configuration type %s cannot carry other directives", d.directive, key))
				}
			}
			l.configs[key] = true
			continue
		}
		st, isStruct := obj.Type().Underlying().(*types.Struct)
		if len(directives) == 0 && (!isStruct || !hasInjectedFields(st)) {
			continue
		}
		if !isStruct {
			for _, d := range directives {
				l.reject(key, d.pos, directiveName(d.directive.String()),
					fmt.Sprintf("%s: directives are only valid on struct types", d.directive))
			}
			continue
		}
		l.services[key] = obj.Type()
	}
}

func (l *loader) classify(t types.Type) {
	named, ok := types.Unalias(t).(*types.Named)
	if !ok {
		return
	}
	key := model.TypeKey(types.TypeString(named, nil))
	if _, ok := l.kinds[key]; ok {
		return
	}
	iface, ok := named.Underlying().(*types.Interface)
	if !ok {
		l.kinds[key] = model.KindConcrete
		return
	}
	l.kinds[key] = model.KindInterface
	if iface.NumMethods() > 0 {
		l.interfaces[key] = iface
	}
}

func hasInjectedFields(st *types.Struct) bool {
	for i := range st.NumFields() {
		if _, ok := reflect.StructTag(st.Tag(i)).Lookup("inject"); ok {
			return true
		}
	}
	return false
}

// declarations builds the declaration fragments of pkg.
//
// Directives on a type group and on an individual type spec are separate fragments.
func (l *loader) declarations(pkg *packages.Package) []*model.Declaration {
	var out []*model.Declaration
	for td := range typeDecls(pkg) {
		file, gen, spec := td.file, td.gen, td.spec
		obj, ok := pkg.TypesInfo.Defs[spec.Name].(*types.TypeName)
		if !ok {
			continue
		}
		key := model.TypeKey(types.TypeString(obj.Type(), nil))
		if _, ok := l.services[key]; !ok {
			continue
		}
		pos := l.fset.Position(spec.Pos())
		if gen.Lparen.IsValid() && gen.Doc != nil {
			group := &model.Declaration{Key: key, Position: pos}
			l.annotate(pkg, file, group, gen.Doc)
			out = append(out, group)
		}
		decl := &model.Declaration{Key: key, Position: pos}
		doc := spec.Doc
		if !gen.Lparen.IsValid() {
			doc = gen.Doc
		}
		l.annotate(pkg, file, decl, doc)
		l.fields(decl, obj.Type().Underlying().(*types.Struct))
		l.logger.Debug("Found declaration", "service", key, "pos", pos)
		out = append(out, decl)
	}
	return out
}

func (l *loader) annotate(pkg *packages.Package, file *ast.File, decl *model.Declaration, doc *ast.CommentGroup) {
	for _, d := range l.parseDirectives(decl.Key, doc) {
		switch directive := d.directive.(type) {
		case *directiveparser.DirectiveLifetime:
			lifetime, err := model.ParseLifetime(directive.Lifetime)
			if err != nil {
				l.reject(decl.Key, d.pos, directive.Lifetime, err.Error())
				continue
			}
			decl.Annotations = append(decl.Annotations, &model.LifetimeAnnotation{Position: d.pos, Lifetime: lifetime})

		case *directiveparser.DirectiveAbstract:
			decl.Abstract = true

		case *directiveparser.DirectiveInject:
			for _, ref := range directive.Types {
				decl.Annotations = append(decl.Annotations, &model.DependencyRequest{
					Position:   d.pos,
					Capability: l.resolve(pkg, file, ref),
					Source:     model.SourceExplicit,
					Naming:     directive.Naming(),
					External:   directive.External,
				})
			}

		case *directiveparser.DirectiveWhen:
			decl.Annotations = append(decl.Annotations, conditionRequest(d.pos, directive))

		case *directiveparser.DirectiveExpose:
			request := &model.ExposureRequest{
				Position:   d.pos,
				Mode:       exposureMode(directive.Mode),
				Interfaces: l.resolveAll(pkg, file, directive.Types),
			}
			if directive.Sharing == "shared" {
				request.Sharing = model.Shared
			}
			decl.Annotations = append(decl.Annotations, request)

		case *directiveparser.DirectiveSkip:
			decl.Annotations = append(decl.Annotations, &model.ExposureRequest{
				Position:   d.pos,
				Mode:       model.ModeSkip,
				Interfaces: l.resolveAll(pkg, file, directive.Types),
			})

		case *directiveparser.DirectiveConfig:
			l.reject(decl.Key, d.pos, "config", "di:config is only valid on configuration types")
		}
	}
}

// fields records the base type, injected members and configuration members of a service.
//
// The first embedded service is the base. Any further embedded services are recorded in
// Embedded and are not inherited from.
func (l *loader) fields(decl *model.Declaration, st *types.Struct) {
	for i := range st.NumFields() {
		field := st.Field(i)
		tag := reflect.StructTag(st.Tag(i))
		fieldType := field.Type()
		if ptr, ok := fieldType.(*types.Pointer); ok {
			fieldType = ptr.Elem()
		}
		fieldKey := model.TypeKey(types.TypeString(fieldType, nil))
		if _, ok := l.services[fieldKey]; ok && field.Embedded() {
			if decl.Base == "" {
				decl.Base = fieldKey
			} else {
				decl.Embedded = append(decl.Embedded, fieldKey)
			}
			continue
		}
		if value, ok := tag.Lookup("inject"); ok {
			decl.Annotations = append(decl.Annotations, &model.DependencyRequest{
				Position:   l.fset.Position(field.Pos()),
				Capability: model.TypeKey(types.TypeString(field.Type(), nil)),
				Source:     model.SourceMember,
				Member:     field.Name(),
				External:   value == "external",
			})
			continue
		}
		if _, ok := tag.Lookup("config"); ok || l.configs[fieldKey] {
			decl.ConfigMembers = append(decl.ConfigMembers, field.Name())
		}
	}
}

// implements fills in the interfaces implemented by each fragment carrying the struct body.
func (l *loader) implements(fragments []*model.Declaration) {
	keys := make([]model.TypeKey, 0, len(l.interfaces))
	for key := range l.interfaces {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, decl := range fragments {
		t := l.services[decl.Key]
		for _, key := range keys {
			iface := l.interfaces[key]
			if types.Implements(t, iface) || types.Implements(types.NewPointer(t), iface) {
				decl.Interfaces = append(decl.Interfaces, key)
			}
		}
	}
}

// resolve a type reference in the scope of file, falling back to its literal text.
func (l *loader) resolve(pkg *packages.Package, file *ast.File, ref *directiveparser.TypeRef) model.TypeKey {
	var scope *types.Scope
	if qualifier := ref.Package(); qualifier == "" {
		scope = pkg.Types.Scope()
	} else {
		for _, spec := range file.Imports {
			importPath, err := strconv.Unquote(spec.Path.Value)
			if err != nil {
				continue
			}
			index := slices.IndexFunc(pkg.Types.Imports(), func(p *types.Package) bool { return p.Path() == importPath })
			if index < 0 {
				continue
			}
			imported := pkg.Types.Imports()[index]
			name := imported.Name()
			if spec.Name != nil {
				name = spec.Name.Name
			}
			if name == qualifier {
				scope = imported.Scope()
				break
			}
		}
	}
	var obj types.Object
	if scope != nil {
		obj = scope.Lookup(ref.Ident())
	}
	if obj == nil && ref.Package() == "" {
		obj = types.Universe.Lookup(ref.Ident())
	}
	typeName, ok := obj.(*types.TypeName)
	if !ok {
		l.logger.Debug("Unresolved type reference", "ref", ref.String(), "pkg", pkg.PkgPath)
		return model.TypeKey(ref.String())
	}
	l.classify(typeName.Type())
	key := types.TypeString(types.Unalias(typeName.Type()), nil)
	if ref.Pointer {
		key = "*" + key
	}
	return model.TypeKey(key)
}

func (l *loader) resolveAll(pkg *packages.Package, file *ast.File, refs []*directiveparser.TypeRef) []model.TypeKey {
	out := make([]model.TypeKey, 0, len(refs))
	for _, ref := range refs {
		out = append(out, l.resolve(pkg, file, ref))
	}
	return out
}

func conditionRequest(pos token.Position, directive *directiveparser.DirectiveWhen) *model.ConditionRequest {
	request := &model.ConditionRequest{Position: pos}
	if clause, ok := directive.Clause("env", "="); ok {
		request.EnvEquals = directiveparser.SplitList(clause.Value)
	}
	if clause, ok := directive.Clause("env", "!="); ok {
		request.EnvNotEquals = directiveparser.SplitList(clause.Value)
	}
	key, hasKey := directive.Clause("config", "=")
	equals, hasEquals := directive.Clause("equals", "=")
	notEquals, hasNotEquals := directive.Clause("not-equals", "=")
	if !hasKey && !hasEquals && !hasNotEquals {
		return request
	}
	request.Config = &model.ConfigCondition{}
	if hasKey {
		request.Config.Key = key.Value
	}
	if hasEquals {
		value := equals.Value
		request.Config.Equals = &value
	}
	if hasNotEquals {
		request.Config.NotEquals = directiveparser.SplitList(notEquals.Value)
	}
	return request
}

func exposureMode(mode string) model.RegistrationMode {
	switch mode {
	case "self":
		return model.ModeSelf
	case "interfaces":
		return model.ModeInterfaces
	case "all":
		return model.ModeAll
	default:
		return model.ModeDefault
	}
}

func importPathForDir(dir string) (string, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Errorf("failed to get absolute path for directory %s: %w", dir, err)
	}
	dir = root
	// Search up directories for go.mod file
	for {
		if _, err := os.Stat(filepath.Join(root, "go.mod")); err == nil {
			break
		}
		if root == filepath.Dir(root) {
			return "", errors.Errorf("couldn't find a go.mod file above %s", dir)
		}
		root = filepath.Dir(root)
	}
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return "", errors.Errorf("failed to get relative path for directory %s: %w", dir, err)
	}
	goModPath := filepath.Join(root, "go.mod")
	data, err := os.ReadFile(goModPath) //nolint
	if err != nil {
		return "", errors.Errorf("failed to read go.mod file at %s: %w", goModPath, err)
	}
	mod, err := modfile.Parse(goModPath, data, nil)
	if err != nil {
		return "", errors.Errorf("failed to parse go.mod file at %s: %w", goModPath, err)
	}
	return path.Join(mod.Module.Mod.Path, filepath.ToSlash(rel)), nil
}
