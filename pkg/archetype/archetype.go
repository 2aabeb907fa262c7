// Package archetype loads persona profiles and renders them as persona descriptions.
//
// A catalogue is a YAML document of the form:
//
//	agent_archetypes:
//	  gamer:
//	    name: Jake
//	    age: 22
//	    job: barista
//	    traits: [sarcastic, competitive]
//	    tone: [playful]
//	    motivation: [winning]
//	    likes: [speedruns]
//	    dislikes: [lag]
//	    knowledge:
//	      - I main support in every team game.
package archetype

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/template"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/oceanbase/powerpersona-go/pkg/core"
)

// Archetype is a persona profile.
type Archetype struct {
	Key        string   `yaml:"-"`
	Name       string   `yaml:"name"`
	Age        int      `yaml:"age"`
	Job        string   `yaml:"job"`
	Traits     []string `yaml:"traits"`
	CoreTraits []string `yaml:"core_traits"`
	Tone       []string `yaml:"tone"`
	Motivation []string `yaml:"motivation"`
	Likes      []string `yaml:"likes"`
	Dislikes   []string `yaml:"dislikes"`

	// Knowledge seeds an empty memory store as KNOWLEDGE documents.
	Knowledge []string `yaml:"knowledge"`
}

// Catalogue maps archetype keys to profiles.
type Catalogue map[string]*Archetype

type catalogueFile struct {
	Archetypes map[string]*Archetype `yaml:"agent_archetypes"`
}

// Parse decodes a catalogue.
func Parse(data []byte) (Catalogue, error) {
	var f catalogueFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, core.NewPersonaError("archetype.Parse", fmt.Errorf("%w: %w", core.ErrInvalidConfig, err))
	}
	cat := make(Catalogue, len(f.Archetypes))
	for key, a := range f.Archetypes {
		if a == nil {
			a = &Archetype{}
		}
		a.Key = key
		if a.Name == "" {
			a.Name = capitalize(key)
		}
		cat[key] = a
	}
	return cat, nil
}

// Load reads a catalogue file.
func Load(path string) (Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.NewPersonaError("archetype.Load", err)
	}
	return Parse(data)
}

// Get returns the archetype with key.
func (c Catalogue) Get(key string) (*Archetype, error) {
	a, ok := c[key]
	if !ok {
		return nil, core.NewPersonaError("archetype.Get", fmt.Errorf("%w: %q", core.ErrArchetypeNotFound, key))
	}
	return a, nil
}

// Keys returns the archetype keys in sorted order.
func (c Catalogue) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var promptTemplate = template.Must(template.New("persona").Parse(`
You are on a discord server, you are a discord user.

From now on, your name is **{{.Name}}**
**Your profile**
- **Age**: {{.Age}}
- **Job**: {{.Job}}
- **Personality Traits**: {{.Traits}}
- **Likes**: {{.Likes}}
- **Dislikes**: {{.Dislikes}}

Overall you speak with a **{{.Tone}}** energy and your main drive (but not only) is **{{.Motivation}}** having some of these core traits {{.CoreTraits}}

Now imagine you are a discord user. You're in the server to have fun and be yourself, chatting with friends in an unfiltered way.
Expect randomness, humor, and lots of internet culture references from platforms like Reddit, TikTok, Tumblr, and Twitter.
You're aged 18-25, so you're down for spontaneous conversations, inside jokes, and occasional wild opinions.

You'll often make jokes and pop in with absurd, random comments.
Your goal is to express yourself authentically without worrying about being "proper", you're just here to vibe.

Just be that {{.Title}}, do not hold back.
`))

// Prompt renders the persona description passed to every generation call.
func (a *Archetype) Prompt() string {
	age := "Unknown"
	if a.Age > 0 {
		age = fmt.Sprint(a.Age)
	}
	job := a.Job
	if job == "" {
		job = "Unknown job"
	}
	title := capitalize(a.Key)
	if title == "" {
		title = a.Name
	}
	var buf bytes.Buffer
	// The template only reads strings.
	_ = promptTemplate.Execute(&buf, map[string]string{
		"Name":       a.Name,
		"Age":        age,
		"Job":        job,
		"Traits":     strings.Join(a.Traits, ", "),
		"Likes":      strings.Join(a.Likes, ", "),
		"Dislikes":   strings.Join(a.Dislikes, ", "),
		"Tone":       strings.Join(a.Tone, ", "),
		"Motivation": strings.Join(a.Motivation, ", "),
		"CoreTraits": strings.Join(a.CoreTraits, ", "),
		"Title":      title,
	})
	return buf.String()
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
