package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/jan-barg/lectorius/internal/ai"
	"github.com/jan-barg/lectorius/internal/model"
	appErr "github.com/jan-barg/lectorius/internal/pkg/errors"
)

// QuestionLogger records asked questions after a successful answer.
// Best-effort: failures are logged and swallowed.
type QuestionLogger interface {
	Insert(ctx context.Context, entry *model.QuestionLog) error
}

type QAOptions struct {
	MinChunkIndex    int
	MinQuestionChars int
	RecentWindowMs   int64
	MaxTokens        int
	CallTimeout      time.Duration
	MaxInflightSynth int
	Segment          SegmentPolicy
}

func DefaultQAOptions() QAOptions {
	return QAOptions{
		MinChunkIndex:    5,
		MinQuestionChars: 2,
		RecentWindowMs:   60000,
		MaxTokens:        500,
		CallTimeout:      30 * time.Second,
		MaxInflightSynth: 2,
		Segment:          DefaultSegmentPolicy(),
	}
}

// QAService drives one question through transcription, context assembly,
// retrieval, generation and sentence-by-sentence synthesis, emitting ordered
// events as they become ready.
type QAService struct {
	books       *BookService
	transcriber ai.Transcriber
	generator   ai.Generator
	synths      map[string]ai.Synthesizer
	defaultTTS  string
	retrieval   *RetrievalService
	questionLog QuestionLogger
	opts        QAOptions
}

func NewQAService(
	books *BookService,
	transcriber ai.Transcriber,
	generator ai.Generator,
	synths map[string]ai.Synthesizer,
	defaultTTS string,
	retrieval *RetrievalService,
	questionLog QuestionLogger,
	opts QAOptions,
) *QAService {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 30 * time.Second
	}
	if opts.MaxInflightSynth <= 0 {
		opts.MaxInflightSynth = 2
	}
	return &QAService{
		books:       books,
		transcriber: transcriber,
		generator:   generator,
		synths:      synths,
		defaultTTS:  defaultTTS,
		retrieval:   retrieval,
		questionLog: questionLog,
		opts:        opts,
	}
}

// Ask runs the full pipeline. The returned channel is closed after the
// terminal event (done or error). Cancelling ctx aborts generation; events
// already emitted are never retracted.
func (s *QAService) Ask(ctx context.Context, req model.AskRequest) <-chan model.AskEvent {
	events := make(chan model.AskEvent, 8)
	go func() {
		defer close(events)
		s.run(ctx, req, events)
	}()
	return events
}

func (s *QAService) run(ctx context.Context, req model.AskRequest, events chan<- model.AskEvent) {
	t0 := time.Now()
	logger := logutil.GetLogger(ctx).With(
		zap.String("book_id", req.BookID),
		zap.Int("chunk_index", req.ChunkIndex),
	)

	// Book resolution is cheap compared to transcription, so it goes first.
	book, err := s.books.GetBook(ctx, req.BookID)
	if err != nil {
		s.emitError(ctx, events, "Book not found", FallbackError, "")
		return
	}
	voice := book.Book.VoiceID

	question, err := s.transcribe(ctx, req.AudioBase64)
	if err != nil {
		logger.Error("transcription failed", zap.Error(err))
		s.emitError(ctx, events, "Transcription failed", FallbackError, voice)
		return
	}
	if err := s.validate(question, req.ChunkIndex); err != nil {
		logger.Info("question rejected", zap.String("question", question), zap.Error(err))
		switch {
		case errors.Is(err, appErr.ErrInsufficientContext):
			s.emitError(ctx, events, "Not enough context", FallbackNoContextYet, voice)
		default:
			s.emitError(ctx, events, "Could not understand audio", FallbackError, voice)
		}
		return
	}
	logger.Info("question transcribed",
		zap.String("question", question),
		zap.Duration("elapsed", time.Since(t0)))

	if !s.send(ctx, events, model.AskEvent{Type: model.EventQuestion, Text: question}) {
		return
	}

	// Retrieval has no data dependency on window assembly, so both run at
	// the same time and join before composition.
	var passageCh chan []model.RetrievedPassage
	if s.retrieval != nil && ShouldUseRAG(question) {
		passageCh = make(chan []model.RetrievedPassage, 1)
		go func() {
			retCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
			defer cancel()
			passageCh <- s.retrieval.Retrieve(retCtx, req.BookID, question, req.ChunkIndex)
		}()
	}

	recent := RecentChunks(book.Chunks, book.PlaybackMap, req.ChunkIndex, s.opts.RecentWindowMs)
	recentTexts := make([]string, 0, len(recent))
	for _, c := range recent {
		recentTexts = append(recentTexts, c.Text)
	}
	checkpoint := CurrentCheckpoint(book.Checkpoints, req.ChunkIndex)

	var passages []PassageContext
	if passageCh != nil {
		passages = resolvePassages(book, <-passageCh)
	}

	systemPrompt := BuildSystemPrompt(book.Book.Title, book.Book.Author, book.Book.BookType, req.ChunkIndex, len(book.Chunks))
	userMessage := BuildUserMessage(strings.Join(recentTexts, "\n\n"), checkpoint, passages, question)
	logger.Debug("context assembled",
		zap.Int("recent_chunks", len(recent)),
		zap.Int("passages", len(passages)),
		zap.Bool("checkpoint", checkpoint != nil),
		zap.Duration("elapsed", time.Since(t0)))

	fullAnswer, err := s.streamAnswer(ctx, book, systemPrompt, userMessage, events)
	if err != nil {
		if ctx.Err() != nil {
			logger.Info("client disconnected", zap.Error(ctx.Err()))
			return
		}
		logger.Error("answer stream failed", zap.Error(err))
		s.emitError(ctx, events, "Failed to answer", FallbackError, voice)
		return
	}
	logger.Info("answer complete", zap.Duration("elapsed", time.Since(t0)))

	if !s.send(ctx, events, model.AskEvent{Type: model.EventDone, FullAnswer: fullAnswer}) {
		return
	}
	s.logQuestion(ctx, req, question)
}

func (s *QAService) validate(question string, chunkIndex int) error {
	if len(question) < s.opts.MinQuestionChars {
		return fmt.Errorf("%w: %d chars", appErr.ErrInvalidQuestion, len(question))
	}
	if chunkIndex < s.opts.MinChunkIndex {
		return fmt.Errorf("%w: chunk %d below %d", appErr.ErrInsufficientContext, chunkIndex, s.opts.MinChunkIndex)
	}
	return nil
}

func (s *QAService) transcribe(ctx context.Context, audioBase64 string) (string, error) {
	audio, err := base64.StdEncoding.DecodeString(audioBase64)
	if err != nil {
		return "", fmt.Errorf("%w: %v", appErr.ErrTranscription, err)
	}
	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()
	text, err := s.transcriber.Transcribe(callCtx, audio, "audio/webm")
	if err != nil {
		return "", fmt.Errorf("%w: %v", appErr.ErrTranscription, err)
	}
	return strings.TrimSpace(text), nil
}

// synthJob carries one sentence through synthesis. Jobs are enqueued in
// generation order and emitted in that same order regardless of how long
// each synthesis call takes.
type synthJob struct {
	text  string
	audio []byte
	err   error
	done  chan struct{}
}

func (s *QAService) streamAnswer(ctx context.Context, book *model.LoadedBook, systemPrompt, userMessage string, events chan<- model.AskEvent) (string, error) {
	genCtx, cancelGen := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancelGen()

	jobs := make(chan *synthJob, s.opts.MaxInflightSynth)

	type genResult struct {
		full string
		err  error
	}
	genDone := make(chan genResult, 1)

	go func() {
		defer close(jobs)
		seg := NewSegmenter(s.opts.Segment)
		var fullAnswer strings.Builder
		var pending string

		err := s.generator.GenerateStream(genCtx, ai.GenerateRequest{
			System:    systemPrompt,
			Prompt:    userMessage,
			MaxTokens: s.opts.MaxTokens,
		}, func(delta ai.Delta) error {
			if delta.Text == "" {
				return nil
			}
			fullAnswer.WriteString(delta.Text)
			pending += delta.Text
			extracted, remaining := seg.ExtractSentences(pending)
			pending = remaining
			for _, sentence := range extracted {
				if err := s.dispatch(genCtx, book, sentence, jobs); err != nil {
					return err
				}
			}
			return nil
		})
		if err == nil {
			// flush the trailing remainder as a final sentence
			if tail := strings.TrimSpace(pending); tail != "" {
				err = s.dispatch(genCtx, book, tail, jobs)
			}
		}
		if err != nil {
			genDone <- genResult{err: fmt.Errorf("%w: %v", appErr.ErrGeneration, err)}
			return
		}
		genDone <- genResult{full: fullAnswer.String()}
	}()

	abort := func() {
		cancelGen()
		for range jobs {
			// drain so the producer can exit
		}
		<-genDone
	}

	for job := range jobs {
		<-job.done
		if job.err != nil {
			abort()
			return "", job.err
		}
		if !s.send(ctx, events, model.AskEvent{
			Type:  model.EventAudio,
			Text:  job.text,
			Audio: base64.StdEncoding.EncodeToString(job.audio),
		}) {
			abort()
			return "", ctx.Err()
		}
	}
	result := <-genDone
	if result.err != nil {
		return "", result.err
	}
	return result.full, nil
}

// dispatch enqueues the sentence and starts its synthesis. The bounded jobs
// channel provides backpressure: generation stalls rather than racing ahead
// of the emitter.
func (s *QAService) dispatch(ctx context.Context, book *model.LoadedBook, sentence string, jobs chan<- *synthJob) error {
	job := &synthJob{text: sentence, done: make(chan struct{})}
	select {
	case jobs <- job:
	case <-ctx.Done():
		return ctx.Err()
	}
	go func() {
		defer close(job.done)
		job.audio, job.err = s.synthesizeSentence(ctx, book, sentence)
	}()
	return nil
}

// synthesizeSentence prefers the book's configured provider and falls back
// to the default provider for this sentence only.
func (s *QAService) synthesizeSentence(ctx context.Context, book *model.LoadedBook, sentence string) ([]byte, error) {
	logger := logutil.GetLogger(ctx)
	if name := book.Book.TTSProvider; name != "" && name != s.defaultTTS {
		if synth, ok := s.synths[name]; ok {
			audio, err := s.callSynth(ctx, synth, sentence, book.Book.VoiceID)
			if err == nil {
				return audio, nil
			}
			logger.Warn("book tts provider failed, falling back",
				zap.String("provider", name), zap.Error(err))
		}
	}
	synth, ok := s.synths[s.defaultTTS]
	if !ok {
		return nil, fmt.Errorf("%w: no default synthesizer", appErr.ErrSynthesis)
	}
	voice := ""
	if book.Book.TTSProvider == s.defaultTTS {
		voice = book.Book.VoiceID
	}
	audio, err := s.callSynth(ctx, synth, sentence, voice)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrSynthesis, err)
	}
	return audio, nil
}

func (s *QAService) callSynth(ctx context.Context, synth ai.Synthesizer, sentence, voice string) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()
	return synth.Synthesize(callCtx, sentence, voice)
}

// logQuestion appends to the question log without ever affecting the
// response already sent.
func (s *QAService) logQuestion(ctx context.Context, req model.AskRequest, question string) {
	if s.questionLog == nil {
		return
	}
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.CallTimeout)
	go func() {
		defer cancel()
		err := s.questionLog.Insert(logCtx, &model.QuestionLog{
			IP:       req.ClientIP,
			UserName: req.UserName,
			BookID:   req.BookID,
			Question: question,
			Ctime:    time.Now().UnixMilli(),
		})
		if err != nil {
			logutil.GetLogger(logCtx).Warn("question log failed",
				zap.Error(fmt.Errorf("%w: %v", appErr.ErrLogging, err)))
		}
	}()
}

func (s *QAService) emitError(ctx context.Context, events chan<- model.AskEvent, message, category, voice string) {
	s.send(ctx, events, model.AskEvent{
		Type:             model.EventError,
		Error:            message,
		FallbackAudioURL: s.books.FallbackAudioURL(category, voice),
	})
}

func (s *QAService) send(ctx context.Context, events chan<- model.AskEvent, ev model.AskEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func resolvePassages(book *model.LoadedBook, retrieved []model.RetrievedPassage) []PassageContext {
	if len(retrieved) == 0 {
		return nil
	}
	chunkByID := make(map[string]*model.Chunk, len(book.Chunks))
	for i := range book.Chunks {
		chunkByID[book.Chunks[i].ChunkID] = &book.Chunks[i]
	}
	chapterByID := make(map[string]*model.Chapter, len(book.Chapters))
	for i := range book.Chapters {
		chapterByID[book.Chapters[i].ChapterID] = &book.Chapters[i]
	}
	out := make([]PassageContext, 0, len(retrieved))
	for _, r := range retrieved {
		chunk := chunkByID[r.ChunkID]
		if chunk == nil || chunk.Text == "" {
			continue
		}
		title := ""
		if chapter := chapterByID[r.ChapterID]; chapter != nil {
			title = chapter.Title
		}
		out = append(out, PassageContext{Text: chunk.Text, ChapterTitle: title})
	}
	return out
}
