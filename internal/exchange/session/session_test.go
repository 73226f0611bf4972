package session

import "testing"

func TestStoreLifecycle(t *testing.T) {
	st := NewStore()
	if _, ok := st.Get("p1"); ok {
		t.Fatalf("empty store returned a session")
	}
	st.Put("p1", &Session{PlayerID: "p1", Mob: "ZOMBIE", Required: 3})
	ses, ok := st.Get("p1")
	if !ok || ses.Required != 3 || ses.Mob != "ZOMBIE" {
		t.Fatalf("unexpected session: %+v ok=%v", ses, ok)
	}
	st.Put("p1", &Session{PlayerID: "p1", Mob: "BLAZE", Required: 5})
	if ses, _ := st.Get("p1"); ses.Mob != "BLAZE" {
		t.Fatalf("put did not overwrite: %+v", ses)
	}
	if st.Len() != 1 {
		t.Fatalf("len = %d, want 1", st.Len())
	}
	st.Remove("p1")
	if _, ok := st.Get("p1"); ok {
		t.Fatalf("session survived remove")
	}
}

func TestStorePartitionedByPlayer(t *testing.T) {
	st := NewStore()
	st.Put("p1", &Session{PlayerID: "p1", Mob: "ZOMBIE", Required: 1})
	st.Put("p2", &Session{PlayerID: "p2", Mob: "SKELETON", Required: 3})
	st.Remove("p1")
	if _, ok := st.Get("p2"); !ok {
		t.Fatalf("removing p1 disturbed p2")
	}
}
