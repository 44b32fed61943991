//go:build whispercpp

package engine

/*
#cgo CFLAGS: -I${SRCDIR}/../../third_party/whisper.cpp -I${SRCDIR}/../../third_party/whisper.cpp/include -I${SRCDIR}/../../third_party/whisper.cpp/ggml/include
#cgo CXXFLAGS: -std=c++17 -I${SRCDIR}/../../third_party/whisper.cpp -I${SRCDIR}/../../third_party/whisper.cpp/include -I${SRCDIR}/../../third_party/whisper.cpp/ggml/include
#cgo LDFLAGS: -L${SRCDIR}/../../third_party/whisper.cpp/build -L${SRCDIR}/../../third_party/whisper.cpp/build/src -Wl,-rpath,${SRCDIR}/../../third_party/whisper.cpp/build/src -lwhisper -lstdc++ -lm

#include "stdlib.h"
#include "include/whisper.h"
#include "ggml.h"

bool whisperGoAbort(void * user_data);
*/
import "C"

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/cgo"
	"strings"
	"sync"
	"unsafe"
)

func NativeAvailable() bool { return true }

// NativeEngine drives whisper.cpp directly. One inference owns the whole
// context; inferMu guarantees calls never interleave even if a caller slips
// past the admission gate.
type NativeEngine struct {
	mu      sync.Mutex
	inferMu sync.Mutex

	ctx          *C.struct_whisper_context
	promptTokens []C.whisper_token
}

func NewNativeEngine(modelPath string) (Engine, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: model path required")
	}
	cPath := C.CString(modelPath)
	defer C.free(unsafe.Pointer(cPath))
	cParams := C.whisper_context_default_params()
	cParams.use_gpu = C.bool(false)

	ctx := C.whisper_init_from_file_with_params(cPath, cParams)
	if ctx == nil {
		return nil, fmt.Errorf("whisper: failed to initialise context for %s", modelPath)
	}

	return &NativeEngine{ctx: ctx}, nil
}

func (e *NativeEngine) Transcribe(ctx context.Context, path string, opts Options) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	samples, err := loadSamples(ctx, path)
	if err != nil {
		return Result{}, err
	}
	if len(samples) == 0 {
		return Result{}, nil
	}

	e.inferMu.Lock()
	defer e.inferMu.Unlock()

	state := C.whisper_init_state(e.ctx)
	if state == nil {
		return Result{}, errors.New("whisper: failed to initialise state")
	}
	defer C.whisper_free_state(state)

	cSamples := (*C.float)(unsafe.Pointer(&samples[0]))
	nSamples := C.int(len(samples))

	strategy := C.enum_whisper_sampling_strategy(C.WHISPER_SAMPLING_GREEDY)
	if opts.BeamSize > 1 {
		strategy = C.enum_whisper_sampling_strategy(C.WHISPER_SAMPLING_BEAM_SEARCH)
	}
	params := C.whisper_full_default_params(strategy)
	params.print_progress = C.bool(false)
	params.print_realtime = C.bool(false)
	params.print_timestamps = C.bool(false)
	params.translate = C.bool(false)
	params.no_context = C.bool(false)
	params.single_segment = C.bool(false)
	params.temperature = C.float(opts.Temperature)
	params.no_speech_thold = C.float(opts.NoSpeechThreshold)
	if opts.CompressionRatioThreshold > 0 {
		// whisper.cpp exposes entropy_thold as its repetition guard, the
		// counterpart of a compression-ratio threshold.
		params.entropy_thold = C.float(opts.CompressionRatioThreshold)
	}
	if opts.BestOf > 0 {
		params.greedy.best_of = C.int(opts.BestOf)
	}
	if opts.BeamSize > 1 {
		params.beam_search.beam_size = C.int(opts.BeamSize)
	}

	lang := strings.TrimSpace(opts.Language)
	if lang == "" {
		lang = "auto"
	}
	cLang := C.CString(lang)
	defer C.free(unsafe.Pointer(cLang))
	params.language = cLang
	if strings.EqualFold(lang, "auto") {
		params.detect_language = C.bool(true)
	}

	var cPrompt *C.char
	if opts.InitialPrompt != "" {
		cPrompt = C.CString(opts.InitialPrompt)
		defer C.free(unsafe.Pointer(cPrompt))
		params.initial_prompt = cPrompt
	}

	handle := cgo.NewHandle(ctx)
	defer handle.Delete()
	params.abort_callback = (C.ggml_abort_callback)(C.whisperGoAbort)
	params.abort_callback_user_data = unsafe.Pointer(&handle)

	e.mu.Lock()
	if len(e.promptTokens) > 0 {
		params.prompt_tokens = &e.promptTokens[0]
		params.prompt_n_tokens = C.int(len(e.promptTokens))
	}
	e.mu.Unlock()

	if ret := C.whisper_full_with_state(e.ctx, state, params, cSamples, nSamples); ret != 0 {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("whisper: inference failed with code %d", int(ret))
	}

	e.collectPromptTokens(state)

	res := collectResult(state)
	if res.Language == "" {
		langID := C.whisper_full_lang_id_from_state(state)
		if langID >= 0 {
			res.Language = C.GoString(C.whisper_lang_str(langID))
		}
	}
	if !strings.EqualFold(lang, "auto") {
		res.Language = lang
	}

	slog.Debug("native inference complete",
		"path", path,
		"samples", len(samples),
		"language", res.Language,
		"segments", res.Segments,
		"no_speech_prob", res.NoSpeechProb,
	)
	return res, nil
}

// Reset clears cached prompt tokens. The runner calls this after a transient
// fault so the next attempt starts from clean decode state.
func (e *NativeEngine) Reset() {
	e.mu.Lock()
	e.promptTokens = nil
	e.mu.Unlock()
}

func (e *NativeEngine) Close() error {
	e.inferMu.Lock()
	defer e.inferMu.Unlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.promptTokens = nil
	if e.ctx != nil {
		C.whisper_free(e.ctx)
		e.ctx = nil
	}
	return nil
}

// collectPromptTokens gathers tokens from the current inference to use as
// context for the next call, following the whisper-stream example.
func (e *NativeEngine) collectPromptTokens(state *C.struct_whisper_state) {
	const maxPromptTokens = 224 // whisper_n_text_ctx()/2

	if state == nil {
		return
	}

	nSegments := int(C.whisper_full_n_segments_from_state(state))
	if nSegments == 0 {
		return
	}

	var tokens []C.whisper_token
	for i := 0; i < nSegments; i++ {
		nTokens := int(C.whisper_full_n_tokens_from_state(state, C.int(i)))
		for j := 0; j < nTokens; j++ {
			tokens = append(tokens, C.whisper_full_get_token_id_from_state(state, C.int(i), C.int(j)))
		}
	}

	if len(tokens) > maxPromptTokens {
		tokens = tokens[len(tokens)-maxPromptTokens:]
	}

	e.mu.Lock()
	e.promptTokens = tokens
	e.mu.Unlock()
}

func collectResult(state *C.struct_whisper_state) Result {
	if state == nil {
		return Result{}
	}
	count := int(C.whisper_full_n_segments_from_state(state))
	if count == 0 {
		return Result{}
	}
	var (
		builder      strings.Builder
		logProbs     = make([]float64, 0, count)
		noSpeechProb float64
	)
	for i := 0; i < count; i++ {
		text := strings.TrimSpace(C.GoString(C.whisper_full_get_segment_text_from_state(state, C.int(i))))
		if text != "" {
			if builder.Len() > 0 {
				builder.WriteByte(' ')
			}
			builder.WriteString(text)
		}

		var (
			sumLog  float64
			samples int
		)
		tokenCount := int(C.whisper_full_n_tokens_from_state(state, C.int(i)))
		for j := 0; j < tokenCount; j++ {
			tokenData := C.whisper_full_get_token_data_from_state(state, C.int(i), C.int(j))
			sumLog += float64(tokenData.plog)
			samples++
		}
		if samples > 0 {
			logProbs = append(logProbs, sumLog/float64(samples))
		}

		if i == 0 {
			noSpeechProb = float64(C.whisper_full_get_segment_no_speech_prob_from_state(state, C.int(i)))
		}
	}
	text := strings.TrimSpace(builder.String())
	if strings.EqualFold(text, "[BLANK_AUDIO]") {
		text = ""
	}
	return Result{
		Text:            text,
		SegmentLogProbs: logProbs,
		NoSpeechProb:    noSpeechProb,
		Segments:        count,
	}
}

//export whisperGoAbort
func whisperGoAbort(userData unsafe.Pointer) C.bool {
	if shouldAbort(userData) {
		return C.bool(true)
	}
	return C.bool(false)
}
