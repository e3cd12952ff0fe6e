package index

// PersistedScheme is the serialized form of one scheme: key -> ids and
// word -> ids, plus nested child schemes keyed by parent value.
type PersistedScheme struct {
	Keys     map[string][]int           `yaml:"keys"`
	Words    map[string][]int           `yaml:"words,omitempty"`
	Children map[string]PersistedScheme `yaml:"children,omitempty"`
}

// Persisted is the serialized form of an Index. Ids are the dense ids of
// the generation that produced it.
type Persisted struct {
	Items   []string                   `yaml:"items"`
	Indexes map[string]PersistedScheme `yaml:"indexes"`
}
