package sequencer

import "go-musicbox/debug"

// Engine owns the beat clock and plays one song at a time through Keys
type Engine struct {
	keys *Keys
	beat int
}

// NewEngine creates an engine driving keys
func NewEngine(keys *Keys) *Engine {
	return &Engine{keys: keys}
}

// Beat returns the current beat
func (e *Engine) Beat() int {
	return e.beat
}

// Reset sets the beat clock, usually to the song's start sentinel
func (e *Engine) Reset(beat int) {
	e.beat = beat
}

// Tick plays one beat of song. When the pending event is due it is applied
// (raise then lower) and the next one is fetched. Once the song has finished
// and the end is due, every key is released and Tick reports true. The beat
// advances on every call.
func (e *Engine) Tick(song *Song) (done bool) {
	if song.due(e.beat) {
		if song.Finished() {
			e.keys.DeactivateAll()
			debug.Log("engine", "%s finished at beat %d", song.Name, e.beat)
			done = true
		} else {
			ev := song.Pending()
			e.keys.Activate(ev.On)
			e.keys.Deactivate(ev.Off)
			song.advance()
		}
	}
	e.beat++
	return done
}
