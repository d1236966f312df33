package container

import (
	"github.com/waflow/waflow/config"
	"github.com/waflow/waflow/metadata"
	"github.com/waflow/waflow/model"
	"github.com/waflow/waflow/persistence"
	bg "github.com/waflow/waflow/persistence/badger"
	"github.com/waflow/waflow/persistence/inmem"
	rd "github.com/waflow/waflow/persistence/redis"
	"github.com/waflow/waflow/util"
)

type DIContainer struct {
	initialized     bool
	runStorage      persistence.RunStorage
	metadataStorage persistence.MetadataStorage
	delayQueue      persistence.DelayQueue
	runLocker       persistence.RunLocker
	metadataService metadata.Service
	RunStateEncDec  util.EncoderDecoder[model.RunState]
	closers         []func() error
}

func NewDiContainer() *DIContainer {
	return &DIContainer{
		initialized: false,
	}
}

func (d *DIContainer) setInitialized() {
	d.initialized = true
}

func (d *DIContainer) Init(conf config.Config) error {
	defer d.setInitialized()
	d.RunStateEncDec = util.NewJsonEncoderDecoder[model.RunState]()

	switch conf.StorageType {
	case config.STORAGE_TYPE_REDIS:
		rdConf := rd.Config{
			Addrs:     conf.RedisConfig.Addrs,
			Namespace: conf.RedisConfig.Namespace,
		}
		d.runStorage = rd.NewRedisRunStorage(rdConf)
		d.metadataStorage = rd.NewRedisMetadataStorage(rdConf)
		d.delayQueue = rd.NewRedisDelayQueue(rdConf)
		d.runLocker = rd.NewRedisRunLocker(rdConf)
	case config.STORAGE_TYPE_BADGER:
		storage, err := bg.NewStorage(conf.BadgerConfig.Path, conf.BadgerConfig.Namespace)
		if err != nil {
			return err
		}
		d.runStorage = storage
		d.metadataStorage = storage
		d.delayQueue = storage
		d.runLocker = storage
		d.closers = append(d.closers, storage.Close)
	default:
		storage := inmem.NewStorage()
		d.runStorage = storage
		d.metadataStorage = storage
		d.delayQueue = storage
		d.runLocker = storage
	}
	d.metadataService = metadata.NewService(d.metadataStorage)
	return nil
}

func (d *DIContainer) GetRunStorage() persistence.RunStorage {
	if !d.initialized {
		panic("persistence not initialized")
	}
	return d.runStorage
}

func (d *DIContainer) GetMetadataStorage() persistence.MetadataStorage {
	if !d.initialized {
		panic("persistence not initialized")
	}
	return d.metadataStorage
}

func (d *DIContainer) GetDelayQueue() persistence.DelayQueue {
	if !d.initialized {
		panic("persistence not initialized")
	}
	return d.delayQueue
}

func (d *DIContainer) GetRunLocker() persistence.RunLocker {
	if !d.initialized {
		panic("persistence not initialized")
	}
	return d.runLocker
}

func (d *DIContainer) GetMetadataService() metadata.Service {
	if !d.initialized {
		panic("persistence not initialized")
	}
	return d.metadataService
}

func (d *DIContainer) Close() error {
	for _, fn := range d.closers {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}
