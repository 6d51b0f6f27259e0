package rules

const (
	projectDataTarget   = "project_data"
	projectDataFunction = "build_project_data"
)

// mergeCallees are callee names whose wrapping is reported as <name>_to_builder.
var mergeCallees = set("dict", "merge", "combine", "deepmerge", "update")

// ProjectData centralizes the assembly of project_data records into
// build_project_data(...).
func ProjectData() Catalog {
	fn := projectDataFunction

	return Catalog{
		Name:            projectDataTarget,
		Target:          projectDataTarget,
		Function:        fn,
		HomeModule:      DefaultHomeModule,
		DefinitionsFile: DefaultDefinitionsFile,
		Definition:      buildProjectDataDefinition,
		StatementRules: []StatementRule{
			updateRule{name: "project_data.update", target: projectDataTarget, method: "update", function: fn},
		},
		Rules: []Rule{
			wrapRule{name: "dict_literal_to_builder", function: fn, kinds: set("dictionary")},
			unionRule{name: "dict_union_to_builder", function: fn},
			callWrapRule{name: "call_wrapped_to_builder", function: fn, namedCalls: mergeCallees},
		},
	}
}

const buildProjectDataDefinition = `def build_project_data(*parts, drop_none=True, drop_empty_str=True, normalize=True, keymap=None):
    """Merge dict-like parts into one project_data record without side effects.

    parts: any number of mappings; None is ignored.
    drop_none: skip None values.
    drop_empty_str: skip blank strings.
    normalize: trim keys and remove zero-width characters and line breaks.
    keymap: optional synonym mapping applied to keys.
    """
    out = {}

    def _coerce(x):
        try:
            if x is None:
                return {}
            if isinstance(x, dict):
                return x
            if hasattr(x, "items"):
                return dict(x.items())
            return dict(x)
        except (TypeError, ValueError):
            return {}

    for part in parts:
        for k, v in _coerce(part).items():
            if drop_none and v is None:
                continue
            if drop_empty_str and isinstance(v, str) and v.strip() == "":
                continue
            key = k
            if normalize and isinstance(key, str):
                key = key.strip().replace("\u200b", "").replace("\n", " ").strip()
            if keymap and key in keymap:
                key = keymap[key]
            out[key] = v
    return out
`
