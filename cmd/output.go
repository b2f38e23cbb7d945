package main

import (
	"io"
	"os"
)

// create "-" 表示标准输出
func create(path string, stdout io.Writer) (io.WriteCloser, error) {
	if path == "-" {
		return nopCloser{stdout}, nil
	}
	return os.Create(path)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// writeFile 打开 path 并调用 fn 写入，path 为空时跳过
func writeFile(path string, stdout io.Writer, fn func(io.Writer) error) (err error) {
	if path == "" {
		return nil
	}
	f, err := create(path, stdout)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(f)
}
