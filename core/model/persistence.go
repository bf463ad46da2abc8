package model

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

// SaveModel はモデルをファイルに保存する
//
// インターフェース型のフィールドを含む値を保存する場合は、
// 事前に gob.Register で具象型を登録しておく必要がある。
//
// 使用例:
//
//	err := model.SaveModel(bundle, "bundle.gob")
func SaveModel(v interface{}, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", filename)
	}
	if err := SaveModelToWriter(v, file); err != nil {
		_ = file.Close()
		return err
	}
	return errors.Wrap(file.Close(), "failed to close model file")
}

// LoadModel はファイルからモデルを読み込む
//
// 使用例:
//
//	var bundle automl.Bundle
//	err := model.LoadModel(&bundle, "bundle.gob")
func LoadModel(v interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", filename)
	}
	defer file.Close()

	return LoadModelFromReader(v, file)
}

// SaveModelToWriter はモデルをio.Writerに保存する
func SaveModelToWriter(v interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(v); err != nil {
		return errors.Wrap(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader はio.Readerからモデルを読み込む
func LoadModelFromReader(v interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(v); err != nil {
		return errors.Wrap(err, "failed to decode model")
	}
	return nil
}
