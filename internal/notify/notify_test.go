package notify

import "testing"

type sent struct {
	title, message string
}

func recorder(n *Notifier, out *[]sent) {
	n.send = func(title, message, _ string) error {
		*out = append(*out, sent{title, message})
		return nil
	}
}

func TestBatchDone(t *testing.T) {
	var got []sent
	n := New(true)
	recorder(n, &got)

	n.BatchDone("album", 10, 0)
	n.BatchDone("album", 8, 2)

	if len(got) != 2 {
		t.Fatalf("got %d notifications, want 2", len(got))
	}
	if got[0].title != "baobao: batch finished" || got[0].message != "album: 10 files done" {
		t.Errorf("success notification = %+v", got[0])
	}
	if got[1].title != "baobao: batch finished with errors" || got[1].message != "album: 8 done, 2 failed" {
		t.Errorf("failure notification = %+v", got[1])
	}
}

func TestDisabled(t *testing.T) {
	var got []sent
	n := New(false)
	recorder(n, &got)

	n.BatchDone("album", 1, 0)
	n.Error("boom")

	if len(got) != 0 {
		t.Errorf("disabled notifier sent %d notifications", len(got))
	}

	var nilNotifier *Notifier
	nilNotifier.Error("no panic")
}

func TestErrorTruncates(t *testing.T) {
	var got []sent
	n := New(true)
	recorder(n, &got)

	long := ""
	for i := 0; i < 120; i++ {
		long += "错"
	}
	n.Error(long)

	if r := []rune(got[0].message); len(r) != 103 {
		t.Errorf("message length = %d runes, want 103", len(r))
	}
}
