package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type displayLog struct {
	mu   sync.Mutex
	msgs []string
}

func (d *displayLog) show(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.msgs = append(d.msgs, msg)
}

func (d *displayLog) all() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.msgs...)
}

func TestChannel_ShowsThenClears(t *testing.T) {
	log := &displayLog{}
	c := NewChannel(log.show)
	defer c.Close()

	c.NotifyFor("UPI id copied", 30*time.Millisecond)
	assert.Equal(t, "UPI id copied", c.Current())

	assert.Eventually(t, func() bool { return c.Current() == "" }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"UPI id copied", ""}, log.all())
}

func TestChannel_LastCallWins(t *testing.T) {
	log := &displayLog{}
	c := NewChannel(log.show)
	defer c.Close()

	c.NotifyFor("first", 40*time.Millisecond)
	c.NotifyFor("second", 200*time.Millisecond)
	assert.Equal(t, "second", c.Current())

	// The first timer would have fired by now; it must not clear "second".
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, "second", c.Current())

	assert.Eventually(t, func() bool { return c.Current() == "" }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"first", "second", ""}, log.all())
}

func TestChannel_ResetTimer(t *testing.T) {
	c := NewChannel(nil)
	defer c.Close()

	c.NotifyFor("same", 60*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	c.NotifyFor("same", 60*time.Millisecond)
	time.Sleep(40 * time.Millisecond)

	assert.Equal(t, "same", c.Current(), "second call must restart the timer")
}

func TestChannel_NonPositiveDurationUsesDefault(t *testing.T) {
	c := NewChannel(nil)
	defer c.Close()

	c.NotifyFor("msg", 0)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, "msg", c.Current())
}

func TestChannel_Close(t *testing.T) {
	log := &displayLog{}
	c := NewChannel(log.show)

	c.NotifyFor("msg", 20*time.Millisecond)
	c.Close()
	c.Notify("ignored")
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, "", c.Current())
	assert.Equal(t, []string{"msg"}, log.all())
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	assert.Equal(t, "", r.Last())

	r.Notify("a")
	r.NotifyFor("b", 3*time.Second)

	assert.Equal(t, []Message{
		{Text: "a", Duration: DefaultDuration},
		{Text: "b", Duration: 3 * time.Second},
	}, r.Messages())
	assert.Equal(t, "b", r.Last())
}

func TestChannel_WithDuration(t *testing.T) {
	c := NewChannel(nil, WithDuration(30*time.Millisecond))
	defer c.Close()

	c.Notify("short")
	assert.Equal(t, "short", c.Current())

	assert.Eventually(t, func() bool { return c.Current() == "" }, time.Second, 5*time.Millisecond)
}

func TestChannel_ClearInProgressDoesNotBlankNewerMessage(t *testing.T) {
	log := &displayLog{}
	clearing := make(chan struct{})
	hold := make(chan struct{})
	var once sync.Once

	c := NewChannel(func(msg string) {
		log.show(msg)
		if msg == "" {
			once.Do(func() {
				close(clearing)
				<-hold
			})
		}
	})
	defer c.Close()

	c.NotifyFor("a", time.Millisecond)
	<-clearing

	done := make(chan struct{})
	go func() {
		c.NotifyFor("b", time.Hour)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	close(hold)
	<-done

	assert.Equal(t, []string{"a", "", "b"}, log.all())
	assert.Equal(t, "b", c.Current())
}
