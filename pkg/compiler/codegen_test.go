package compiler

import (
	"strings"
	"testing"
)

// assertContains checks that the generated assembly contains expected.
func assertContains(t *testing.T, code, expected string) {
	t.Helper()
	if !strings.Contains(code, expected) {
		t.Errorf("expected code to contain %q, but it didn't.\nCode:\n%s", expected, code)
	}
}

func assertNotContains(t *testing.T, code, unexpected string) {
	t.Helper()
	if strings.Contains(code, unexpected) {
		t.Errorf("expected code NOT to contain %q, but it did.\nCode:\n%s", unexpected, code)
	}
}

func TestGenerateHeader(t *testing.T) {
	code := compileSource(t, "int main(void) { return 0; }")
	if !strings.HasPrefix(code, "    .intel_syntax noprefix\n") {
		t.Errorf("missing Intel-syntax header:\n%s", code)
	}
	assertContains(t, code, "    .text")
	assertContains(t, code, "    .globl _main")
	assertContains(t, code, "_main:")
}

func TestGeneratePrologueEpilogue(t *testing.T) {
	code := compileSource(t, "int main(void) { int x = 1; if (x) return 1; return 2; }")
	assertContains(t, code, "push rbp")
	assertContains(t, code, "mov rbp, rsp")
	assertContains(t, code, "sub rsp, 16")

	// Both returns funnel through the one epilogue label.
	if n := strings.Count(code, "jmp .Lreturn_main"); n != 2 {
		t.Errorf("got %d jumps to the epilogue, want 2", n)
	}
	if n := strings.Count(code, ".Lreturn_main:"); n != 1 {
		t.Errorf("got %d epilogue labels, want 1", n)
	}
	assertContains(t, code, "mov rsp, rbp")
	assertContains(t, code, "pop rbp")
	assertContains(t, code, "ret")
}

func TestGenerateLeafHasNoFrameAllocation(t *testing.T) {
	code := compileSource(t, "int f(void) { return 7; }")
	assertNotContains(t, code, "sub rsp, 0")
}

func TestGenerateParamSpills(t *testing.T) {
	code := compileSource(t, "int f(int a, int b, int c, int d, int e) { return a + e; }")
	assertContains(t, code, "mov [rbp+16], rcx")
	assertContains(t, code, "mov [rbp+24], rdx")
	assertContains(t, code, "mov [rbp+32], r8")
	assertContains(t, code, "mov [rbp+40], r9")
	// The fifth argument already lives on the stack at its home.
	assertContains(t, code, "lea rax, [rbp+48]")
	assertNotContains(t, code, "mov [rbp+48]")
}

func TestGenerateCallRegisterArgs(t *testing.T) {
	src := `
int add3(int a, int b, int c) { return a + b + c; }
int main(void) { return add3(1, 2, 3); }
`
	code := compileSource(t, src)
	assertContains(t, code, "pop rcx")
	assertContains(t, code, "pop rdx")
	assertContains(t, code, "pop r8")
	assertContains(t, code, "sub rsp, 32")
	assertContains(t, code, "call _add3")
	assertContains(t, code, "add rsp, 32")
	// Defined in this unit: no extern for it.
	assertNotContains(t, code, ".extern _add3")
}

func TestGenerateCallStackArgs(t *testing.T) {
	src := `
int f(int a, int b, int c, int d, int e, int g);
int main(void) { return f(1, 2, 3, 4, 5, 6); }
`
	code := compileSource(t, src)
	assertContains(t, code, ".extern _f")
	assertContains(t, code, "pop r9")
	// Two stack arguments: release 32 shadow + 16.
	assertContains(t, code, "add rsp, 48")
}

func TestGenerateCallAlignmentPad(t *testing.T) {
	src := `
int f(void);
int main(void) { return 1 + f(); }
`
	code := compileSource(t, src)
	// The pushed left operand leaves the stack odd; the call site pads.
	assertContains(t, code, "sub rsp, 8")
	assertContains(t, code, "add rsp, 40")
}

func TestGenerateBinaryStackDiscipline(t *testing.T) {
	code := compileSource(t, "int main(void) { return 7 - 3; }")
	assertContains(t, code, "push rax")
	assertContains(t, code, "pop rdi")
	assertContains(t, code, "sub rdi, rax")
	assertContains(t, code, "mov rax, rdi")
}

func TestGenerateDivision(t *testing.T) {
	code := compileSource(t, "int main(void) { int a = 7; return a / 2 + a % 3; }")
	assertContains(t, code, "cqo")
	assertContains(t, code, "idiv rcx")
	assertContains(t, code, "mov rax, rdx")
}

func TestGenerateComparisons(t *testing.T) {
	code := compileSource(t, "int main(void) { int a = 1; return (a < 2) + (a == 1) + (a >= 0); }")
	assertContains(t, code, "cmp rdi, rax")
	assertContains(t, code, "setl al")
	assertContains(t, code, "sete al")
	assertContains(t, code, "setge al")
	assertContains(t, code, "movzx rax, al")
}

func TestGenerateShortCircuit(t *testing.T) {
	src := `
int side(void);
int main(void) { return side() && side() || side(); }
`
	code := compileSource(t, src)
	assertContains(t, code, "je .L")
	assertContains(t, code, "jne .L")
	assertContains(t, code, "mov rax, 1")
	assertContains(t, code, "mov rax, 0")
}

func TestGenerateLoadStoreWidths(t *testing.T) {
	src := `
int main(void) {
    char c = 'x';
    int i = 2;
    long l = 3;
    c = c + 1;
    i = i + 1;
    l = l + 1;
    return i;
}
`
	code := compileSource(t, src)
	assertContains(t, code, "movsx rax, byte ptr [rax]")
	assertContains(t, code, "movsx rax, dword ptr [rax]")
	assertContains(t, code, "mov [rdi], al")
	assertContains(t, code, "mov [rdi], eax")
	assertContains(t, code, "mov [rdi], rax")
}

func TestGeneratePointerScaling(t *testing.T) {
	src := `
int main(void) {
    long a[4];
    long *p = &a[0];
    p = p + 2;
    return a[1] != 0;
}
`
	code := compileSource(t, src)
	assertContains(t, code, "imul rax, rax, 8")
}

func TestGeneratePointerDifference(t *testing.T) {
	src := `
int main(void) {
    int a[4];
    int *p = &a[3];
    int *q = &a[0];
    return p - q;
}
`
	code := compileSource(t, src)
	// Byte distance divided by the element size.
	assertContains(t, code, "mov rcx, 4")
	assertContains(t, code, "idiv rcx")
}

func TestGenerateAddressOfAndDeref(t *testing.T) {
	src := `
int g;
int main(void) {
    int x;
    int *p = &x;
    *p = 5;
    g = 6;
    return *p + g;
}
`
	code := compileSource(t, src)
	assertContains(t, code, "lea rax, [rbp-")
	assertContains(t, code, "lea rax, [rip + _g]")
}

func TestGenerateGlobalData(t *testing.T) {
	src := `
char gc = 'a';
int gi = 5;
long gl = 70000;
int neg = -7;
int arr[3];
int main(void) { return gi; }
`
	code := compileSource(t, src)
	assertContains(t, code, "    .data")
	assertContains(t, code, "_gc:")
	assertContains(t, code, ".byte 97")
	assertContains(t, code, "_gi:")
	assertContains(t, code, ".long 5")
	assertContains(t, code, "_gl:")
	assertContains(t, code, ".quad 70000")
	assertContains(t, code, "_neg:")
	assertContains(t, code, ".long -7")
	assertContains(t, code, "_arr:")
	assertContains(t, code, ".zero 12")
}

func TestGenerateStringDeduplication(t *testing.T) {
	src := `
int puts(char *s);
int main(void) {
    puts("same");
    puts("same");
    puts("other");
    return 0;
}
`
	code := compileSource(t, src)
	if n := strings.Count(code, ".LC0:"); n != 1 {
		t.Errorf(".LC0 defined %d times", n)
	}
	assertContains(t, code, ".LC1:")
	assertNotContains(t, code, ".LC2:")
	// Both uses of the duplicate reference the shared label.
	if n := strings.Count(code, "lea rax, [rip + .LC0]"); n != 2 {
		t.Errorf("got %d references to .LC0, want 2", n)
	}
}

func TestGenerateStringEscapes(t *testing.T) {
	code := compileSource(t, `
int puts(char *s);
int main(void) { puts("line\n\ttab \"q\""); return 0; }
`)
	assertContains(t, code, `.ascii "line\n\ttab \"q\""`)
	assertContains(t, code, ".byte 0")
}

func TestGenerateIncDec(t *testing.T) {
	src := `
int main(void) {
    int i = 0;
    i++;
    ++i;
    i--;
    return i;
}
`
	code := compileSource(t, src)
	assertContains(t, code, "add rax, 1")
	assertContains(t, code, "sub rax, 1")
}

func TestGeneratePointerIncrementScales(t *testing.T) {
	src := `
int main(void) {
    long a[2];
    long *p = &a[0];
    p++;
    return p - &a[0];
}
`
	code := compileSource(t, src)
	assertContains(t, code, "add rax, 8")
}

func TestGenerateWhileLoop(t *testing.T) {
	code := compileSource(t, "int main(void) { int i = 0; while (i < 5) { i = i + 1; } return i; }")
	// Condition at the top, back-edge at the bottom.
	assertContains(t, code, "cmp rax, 0")
	assertContains(t, code, "je .L")
	assertContains(t, code, "jmp .L")
}

func TestGenerateForLoopShape(t *testing.T) {
	code := compileSource(t, "int main(void) { int s = 0; for (int i = 0; i < 3; i = i + 1) s = s + i; return s; }")
	// init store, then the loop labels bracket condition/body/step.
	first := strings.Index(code, ".L1:")
	if first == -1 {
		t.Fatalf("loop label missing:\n%s", code)
	}
	assertContains(t, code, "jmp .L1")
}

func TestGenerateVariadicCall(t *testing.T) {
	src := `
int printf(char *fmt, ...);
int main(void) { return printf("%d %d %d %d %d", 1, 2, 3, 4, 5); }
`
	code := compileSource(t, src)
	assertContains(t, code, ".extern _printf")
	// Six arguments: four in registers, two on the stack.
	assertContains(t, code, "pop rcx")
	assertContains(t, code, "pop r9")
	assertContains(t, code, "add rsp, 48")
}

func TestGenerateCondExpr(t *testing.T) {
	code := compileSource(t, "int main(void) { int x = 1; return x ? 10 : 20; }")
	assertContains(t, code, "mov rax, 10")
	assertContains(t, code, "mov rax, 20")
	assertContains(t, code, "je .L")
}

func TestGenerateRedeclaredGlobalEmittedOnce(t *testing.T) {
	src := `
int g;
int g;
int h;
int h = 3;
int main(void) { return g + h; }
`
	code := compileSource(t, src)
	if n := strings.Count(code, "_g:"); n != 1 {
		t.Errorf("_g defined %d times, want 1", n)
	}
	if n := strings.Count(code, "_h:"); n != 1 {
		t.Errorf("_h defined %d times, want 1", n)
	}
	// The declarator that carried the initialiser wins.
	assertContains(t, code, ".long 3")
}
