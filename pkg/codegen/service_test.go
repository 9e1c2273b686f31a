package codegen

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stenoweb/steno/pkg/errors"
)

func TestServiceGenerate(t *testing.T) {
	svc := NewService()
	res, err := svc.Generate(loginFlow(), nil, Options{Language: LangJava, Framework: FWSelenium})
	require.NoError(t, err)
	assert.Contains(t, res.Code, "driver.findElement")
	assert.Equal(t, ".java", res.Extension)
	assert.Len(t, res.Hash, 64)
}

func TestServiceNormalizesCase(t *testing.T) {
	svc := NewService()
	res, err := svc.Generate(loginFlow(), nil, Options{Language: "Java", Framework: "Selenium"})
	require.NoError(t, err)
	assert.Contains(t, res.Code, "driver.findElement")
}

func TestServiceRejectsUnknownLanguage(t *testing.T) {
	svc := NewService()
	_, err := svc.Generate(loginFlow(), nil, Options{Language: "ruby", Framework: FWSelenium})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeGenLanguage))
}

func TestServiceCachesByRequest(t *testing.T) {
	svc := NewService()
	steps := loginFlow()
	opts := Options{Language: LangPython, Framework: FWPlaywright}

	first, err := svc.Generate(steps, nil, opts)
	require.NoError(t, err)
	second, err := svc.Generate(steps, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	opts.Framework = FWSelenium
	other, err := svc.Generate(steps, nil, opts)
	require.NoError(t, err)
	assert.NotEqual(t, first.Hash, other.Hash)
	assert.NotEqual(t, first.Code, other.Code)
}

func TestServiceConcurrentRequests(t *testing.T) {
	svc := NewService()
	steps := loginFlow()
	opts := Options{Language: LangJavaScript, Framework: FWCypress}

	results := make([]Result, 8)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.Generate(steps, nil, opts)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	for _, res := range results[1:] {
		assert.Equal(t, results[0], res)
	}
}
