package classfile_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/dhamidi/poolscan/classfile"
	"github.com/dhamidi/poolscan/classfile/classfiletest"
)

var targets = []string{
	"net/minecraft/inventory/Container",
	"invtweaks/api/container/ChestContainer",
	"Lnet/minecraft/item/ItemStack;",
}

// typicalClass mirrors the pool of a small compiled class that references
// one of the given names.
func typicalClass(name string) []byte {
	b := classfiletest.NewBuilder().Version(52, 0)
	b.Methodref(3, 11)       // #1
	b.Class(12)              // #2
	b.Class(19)              // #3
	b.Utf8("<init>")         // #4
	b.Utf8("()V")            // #5
	b.Utf8("Code")           // #6
	b.Long(1 << 40)          // #7, #8
	b.Double(3.5)            // #9, #10
	b.NameAndType(4, 5)      // #11
	b.Utf8("example/Widget") // #12
	b.Integer(42)            // #13
	b.Float(1.5)             // #14
	b.StringRef(12)          // #15
	b.MethodHandle(6, 1)     // #16
	b.MethodType(5)          // #17
	b.InvokeDynamic(0, 11)   // #18
	b.Utf8(name)             // #19
	return b.Bytes()
}

func TestFindExact(t *testing.T) {
	s := classfile.New(targets)

	for _, target := range targets {
		t.Run(target, func(t *testing.T) {
			found, err := s.Find(typicalClass(target), classfile.Exact)
			if err != nil {
				t.Fatalf("Find() error = %v", err)
			}
			if !found {
				t.Errorf("Find() = false, want true")
			}
		})
	}

	t.Run("absent", func(t *testing.T) {
		found, err := s.Find(typicalClass("java/lang/Object"), classfile.Exact)
		if err != nil {
			t.Fatalf("Find() error = %v", err)
		}
		if found {
			t.Errorf("Find() = true, want false")
		}
	})
}

func TestFindTrailingByte(t *testing.T) {
	s := classfile.New(targets)

	for _, target := range targets {
		buf := classfiletest.NewBuilder().Utf8(target + "X").Bytes()

		t.Run(target, func(t *testing.T) {
			exact, err := s.Find(buf, classfile.Exact)
			if err != nil {
				t.Fatalf("Find(Exact) error = %v", err)
			}
			if exact {
				t.Errorf("Find(Exact) = true, want false")
			}

			prefix, err := s.Find(buf, classfile.Prefix)
			if err != nil {
				t.Fatalf("Find(Prefix) error = %v", err)
			}
			if !prefix {
				t.Errorf("Find(Prefix) = false, want true")
			}
		})
	}
}

func TestFindPrefixShorterEntry(t *testing.T) {
	s := classfile.New([]string{"net/minecraft/"})
	buf := classfiletest.NewBuilder().Utf8("net/mine").Bytes()

	found, err := s.Find(buf, classfile.Prefix)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if found {
		t.Errorf("entry shorter than target must not match")
	}
}

func TestFindVersionCeiling(t *testing.T) {
	target := targets[0]

	tests := []struct {
		name  string
		major uint16
		opts  []classfile.Option
		want  bool
	}{
		{"at default ceiling", classfile.DefaultMaxMajorVersion, nil, true},
		{"above default ceiling", classfile.DefaultMaxMajorVersion + 1, nil, false},
		{"high bit set", 0x8000, nil, false},
		{"raised ceiling", 70, []classfile.Option{classfile.WithMaxMajorVersion(70)}, true},
		{"lowered ceiling", 61, []classfile.Option{classfile.WithMaxMajorVersion(52)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := classfile.New([]string{target}, tt.opts...)
			buf := classfiletest.NewBuilder().Version(tt.major, 0).Utf8(target).Bytes()

			for _, mode := range []classfile.MatchMode{classfile.Exact, classfile.Prefix} {
				found, err := s.Find(buf, mode)
				if err != nil {
					t.Fatalf("Find(%s) error = %v", mode, err)
				}
				if found != tt.want {
					t.Errorf("Find(%s) = %v, want %v", mode, found, tt.want)
				}
			}
		})
	}
}

func TestFindAfterWideConstants(t *testing.T) {
	target := "invtweaks/InvTweaks"
	s := classfile.New([]string{target})

	tests := []struct {
		name  string
		build func(*classfiletest.Builder)
	}{
		{"long", func(b *classfiletest.Builder) { b.Long(-1) }},
		{"double", func(b *classfiletest.Builder) { b.Double(2.718281828) }},
		{"long then double", func(b *classfiletest.Builder) { b.Long(7).Double(0) }},
		{"utf8 then long", func(b *classfiletest.Builder) { b.Utf8("x").Long(7) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := classfiletest.NewBuilder()
			tt.build(b)
			buf := b.Utf8(target).Bytes()

			found, err := s.Find(buf, classfile.Exact)
			if err != nil {
				t.Fatalf("Find() error = %v", err)
			}
			if !found {
				t.Errorf("Find() = false, want true")
			}
		})
	}
}

// The count must cover the extra slot of a wide constant. A count that
// stops one short leaves the trailing Utf8 entry unvisited.
func TestFindWideConstantConsumesTwoSlots(t *testing.T) {
	target := "invtweaks/InvTweaks"
	s := classfile.New([]string{target})

	b := classfiletest.NewBuilder().Long(1)
	short := uint16(b.Slots())
	buf := b.Utf8(target).Count(short).Bytes()

	found, err := s.Find(buf, classfile.Exact)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if found {
		t.Errorf("Find() = true, want false: entry beyond the declared count was read")
	}
}

func TestFindEveryTag(t *testing.T) {
	target := "marker"
	s := classfile.New([]string{target})

	b := classfiletest.NewBuilder()
	b.Utf8("a").Integer(1).Float(1).Long(1).Double(1).Class(1).StringRef(1)
	b.Fieldref(1, 1).Methodref(1, 1).InterfaceMethodref(1, 1).NameAndType(1, 1)
	b.MethodHandle(1, 1).MethodType(1).Dynamic(1, 1).InvokeDynamic(1, 1)
	b.Module(1).Package(1)
	buf := b.Utf8(target).Bytes()

	found, err := s.Find(buf, classfile.Exact)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if !found {
		t.Errorf("Find() = false, want true")
	}
}

func TestFindEmptyInput(t *testing.T) {
	s := classfile.New(targets)

	for name, buf := range map[string][]byte{"nil": nil, "empty": {}} {
		t.Run(name, func(t *testing.T) {
			found, err := s.Find(buf, classfile.Prefix)
			if err != nil {
				t.Errorf("Find() error = %v, want nil", err)
			}
			if found {
				t.Errorf("Find() = true, want false")
			}
		})
	}
}

func TestFindDecodeErrors(t *testing.T) {
	s := classfile.New(targets)

	tests := []struct {
		name string
		buf  []byte
		want error
	}{
		{
			name: "short header",
			buf:  []byte{0xCA, 0xFE, 0xBA, 0xBE, 0, 0, 0, 52},
			want: classfile.ErrTruncated,
		},
		{
			name: "utf8 length past end",
			buf:  classfiletest.NewBuilder().Raw(1, 0x00, 0x40, 'n', 'e', 't').Tail(nil).Bytes(),
			want: classfile.ErrTruncated,
		},
		{
			name: "utf8 length cut",
			buf:  classfiletest.NewBuilder().Raw(1, 0x00).Tail(nil).Bytes(),
			want: classfile.ErrTruncated,
		},
		{
			name: "count past end",
			buf:  classfiletest.NewBuilder().Utf8("a").Count(40).Tail(nil).Bytes(),
			want: classfile.ErrTruncated,
		},
		{
			name: "fixed entry cut",
			buf:  classfiletest.NewBuilder().Raw(5, 0, 0, 0).Tail(nil).Bytes(),
			want: classfile.ErrTruncated,
		},
		{
			name: "unknown tag 2",
			buf:  classfiletest.NewBuilder().Utf8("a").Raw(2, 0, 0).Utf8(targets[0]).Bytes(),
			want: classfile.ErrUnknownTag,
		},
		{
			name: "unknown tag 13",
			buf:  classfiletest.NewBuilder().Raw(13, 0, 0).Bytes(),
			want: classfile.ErrUnknownTag,
		},
		{
			name: "unknown tag 21",
			buf:  classfiletest.NewBuilder().Raw(21, 0, 0).Bytes(),
			want: classfile.ErrUnknownTag,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, mode := range []classfile.MatchMode{classfile.Exact, classfile.Prefix} {
				found, err := s.Find(tt.buf, mode)
				if !errors.Is(err, tt.want) {
					t.Fatalf("Find(%s) error = %v, want %v", mode, err, tt.want)
				}
				if found {
					t.Errorf("Find(%s) = true alongside an error", mode)
				}
			}
		})
	}
}

// A match before the malformed entry wins, since the scan stops there.
func TestFindMatchBeforeDecodeError(t *testing.T) {
	s := classfile.New(targets)
	buf := classfiletest.NewBuilder().Utf8(targets[1]).Raw(99).Bytes()

	found, err := s.Find(buf, classfile.Exact)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if !found {
		t.Errorf("Find() = false, want true")
	}
}

func TestFindIdempotent(t *testing.T) {
	s := classfile.New(targets)
	bufs := [][]byte{
		typicalClass(targets[0]),
		typicalClass("java/lang/Object"),
	}

	for _, buf := range bufs {
		first, firstErr := s.Find(buf, classfile.Exact)
		for i := 0; i < 5; i++ {
			got, err := s.Find(buf, classfile.Exact)
			if got != first || (err == nil) != (firstErr == nil) {
				t.Fatalf("call %d = (%v, %v), first = (%v, %v)", i, got, err, first, firstErr)
			}
		}
	}
}

func TestAddTarget(t *testing.T) {
	s := classfile.New(nil)
	buf := typicalClass("invtweaks/forge/InvTweaksMod")

	found, err := s.Find(buf, classfile.Exact)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if found {
		t.Fatalf("empty scanner matched")
	}

	s.AddTarget("invtweaks/forge/InvTweaksMod")

	found, err = s.Find(buf, classfile.Exact)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if !found {
		t.Errorf("Find() after AddTarget = false, want true")
	}
}

func TestAddTargetKeepsOrder(t *testing.T) {
	s := classfile.New([]string{"a", "b"})
	before := s.Targets()
	s.AddTarget("c")
	s.AddTarget("a")

	got := s.Targets()
	want := []string{"a", "b", "c", "a"}
	if len(got) != len(want) {
		t.Fatalf("Targets() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Targets()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if len(before) != 2 {
		t.Errorf("earlier snapshot changed: %v", before)
	}
	if s.Len() != 4 {
		t.Errorf("Len() = %d, want 4", s.Len())
	}
}

func TestFindMultiByteUtf8(t *testing.T) {
	target := "grüße/日本"
	s := classfile.New([]string{target})
	buf := classfiletest.NewBuilder().Utf8(target).Bytes()

	found, err := s.Find(buf, classfile.Exact)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if !found {
		t.Errorf("Find() = false, want true")
	}
}

func TestConcurrentFindAndAddTarget(t *testing.T) {
	s := classfile.New(targets)
	hit := typicalClass(targets[0])
	late := typicalClass("late/Target")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				found, err := s.Find(hit, classfile.Exact)
				if err != nil || !found {
					t.Errorf("Find() = (%v, %v), want (true, nil)", found, err)
					return
				}
				if _, err := s.Find(late, classfile.Prefix); err != nil {
					t.Errorf("Find() error = %v", err)
					return
				}
			}
		}()
	}
	for i := 0; i < 50; i++ {
		s.AddTarget("filler/Target")
	}
	s.AddTarget("late/Target")
	wg.Wait()

	found, err := s.Find(late, classfile.Exact)
	if err != nil || !found {
		t.Errorf("Find() after AddTarget = (%v, %v), want (true, nil)", found, err)
	}
}

func TestParseMatchMode(t *testing.T) {
	tests := []struct {
		in      string
		want    classfile.MatchMode
		wantErr bool
	}{
		{"", classfile.Exact, false},
		{"exact", classfile.Exact, false},
		{"Prefix", classfile.Prefix, false},
		{" prefix ", classfile.Prefix, false},
		{"fuzzy", classfile.Exact, true},
	}
	for _, tt := range tests {
		got, err := classfile.ParseMatchMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMatchMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMatchMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func BenchmarkFind(b *testing.B) {
	s := classfile.New(targets)
	buf := typicalClass("java/lang/Object")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := s.Find(buf, classfile.Prefix); err != nil {
			b.Fatal(err)
		}
	}
}
