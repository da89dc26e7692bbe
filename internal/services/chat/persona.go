package chat

import (
	"sync"

	"github.com/dustin/go-humanize"
)

// Asset is an opaque reference to a file chosen by the user. Its content is
// never read here.
type Asset struct {
	Name      string
	MediaType string
	Size      int64
}

func (a Asset) String() string {
	if a.Size <= 0 {
		return a.Name
	}
	return a.Name + " (" + humanize.Bytes(uint64(a.Size)) + ")"
}

// AssetRef is an optional Asset. The zero value means no asset is selected.
type AssetRef struct {
	asset   Asset
	present bool
}

func NoAsset() AssetRef {
	return AssetRef{}
}

func AssetOf(asset Asset) AssetRef {
	return AssetRef{asset: asset, present: true}
}

func (r AssetRef) Get() (Asset, bool) {
	return r.asset, r.present
}

func (r AssetRef) Present() bool {
	return r.present
}

func (r AssetRef) String() string {
	if !r.present {
		return "none"
	}
	return r.asset.String()
}

type PersonaSettings struct {
	Personality string
	Avatar      AssetRef
	Voice       AssetRef
}

type personalityLookup interface {
	PersonalityOf(id int64) (string, bool)
}

// PersonaConfig stores per-conversation persona settings. Conversations that
// were never configured report their seed personality.
type PersonaConfig struct {
	mu       sync.RWMutex
	seeds    personalityLookup
	fallback string
	settings map[int64]PersonaSettings
}

func NewPersonaConfig(seeds personalityLookup, fallback string) *PersonaConfig {
	return &PersonaConfig{
		seeds:    seeds,
		fallback: fallback,
		settings: make(map[int64]PersonaSettings),
	}
}

func (p *PersonaConfig) Settings(id int64) PersonaSettings {
	p.mu.RLock()
	settings, ok := p.settings[id]
	p.mu.RUnlock()
	if ok {
		return settings
	}
	return p.seedSettings(id)
}

func (p *PersonaConfig) seedSettings(id int64) PersonaSettings {
	if personality, ok := p.seeds.PersonalityOf(id); ok {
		return PersonaSettings{Personality: personality}
	}
	return PersonaSettings{Personality: p.fallback}
}

// UpdatePersonality accepts any text, including the empty string.
func (p *PersonaConfig) UpdatePersonality(id int64, text string) bool {
	return p.update(id, func(s *PersonaSettings) { s.Personality = text })
}

func (p *PersonaConfig) SetAvatarAsset(id int64, ref AssetRef) bool {
	return p.update(id, func(s *PersonaSettings) { s.Avatar = ref })
}

func (p *PersonaConfig) SetVoiceAsset(id int64, ref AssetRef) bool {
	return p.update(id, func(s *PersonaSettings) { s.Voice = ref })
}

// Save replaces all settings of id at once.
func (p *PersonaConfig) Save(id int64, settings PersonaSettings) bool {
	return p.update(id, func(s *PersonaSettings) { *s = settings })
}

func (p *PersonaConfig) update(id int64, apply func(*PersonaSettings)) bool {
	if _, ok := p.seeds.PersonalityOf(id); !ok {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	settings, ok := p.settings[id]
	if !ok {
		settings = p.seedSettings(id)
	}
	apply(&settings)
	p.settings[id] = settings
	return true
}
